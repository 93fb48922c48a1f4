package passes

// OriginKind tells what a name introduced by the pipeline stands for.
type OriginKind int

const (
	_ OriginKind = iota
	// OriginGuard is a materialized branch test.
	OriginGuard
	// OriginReturn holds one candidate return value.
	OriginReturn
	// OriginAttr holds a value of Owner.Field.
	OriginAttr
	// OriginVersion is an SSA version of Name.
	OriginVersion
)

// Origin describes a name introduced by the pipeline.
type Origin struct {
	Kind  OriginKind
	Name  string
	Owner string
	Field string
}

// NameOrigins returns the origin of every name the stages introduced.
func NameOrigins(meta *Metadata) map[string]Origin {
	out := make(map[string]Origin)
	for _, e := range meta.All(KeyOrigins) {
		if m, ok := e.Value.(map[string]Origin); ok {
			for name, o := range m {
				out[name] = o
			}
		}
	}
	for _, e := range meta.All(KeyBindings) {
		events, _ := e.Value.([]BindingEvent)
		for _, ev := range events {
			if ev.Kind == BoundAssign || ev.Kind == BoundMux {
				out[ev.Version] = Origin{Kind: OriginVersion, Name: ev.Name}
			}
		}
	}
	return out
}
