package passes

// Metadata keys written by the built-in stages.
const (
	KeyOriginal    = "original"
	KeyPositions   = "positions"
	KeyProvenance  = "provenance"
	KeyHoisted     = "hoisted-attributes"
	KeyFinalNames  = "final-names"
	KeyArmFacts    = "arm-facts"
	KeyBindings    = "bindings"
	KeySymbolTable = "symbol-table"
	KeyOrigins     = "origins"
)

// Entry is one record of the metadata side channel.
type Entry struct {
	Stage string
	Key   string
	Value any
}

// Metadata is an ordered, append-only side channel shared by the
// stages of one pipeline run. Stages may ignore entries they do not
// understand.
type Metadata struct {
	entries []Entry
}

// NewMetadata creates an empty side channel.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// Append records value under key on behalf of stage.
func (m *Metadata) Append(stage, key string, value any) {
	m.entries = append(m.entries, Entry{Stage: stage, Key: key, Value: value})
}

// Get returns the most recent value recorded under key.
func (m *Metadata) Get(key string) (any, bool) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Key == key {
			return m.entries[i].Value, true
		}
	}
	return nil, false
}

// GetFrom returns the most recent value stage recorded under key.
func (m *Metadata) GetFrom(stage, key string) (any, bool) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Key == key && e.Stage == stage {
			return e.Value, true
		}
	}
	return nil, false
}

// All returns every entry recorded under key, oldest first.
func (m *Metadata) All(key string) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of the whole side channel.
func (m *Metadata) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	return len(m.entries)
}

// lookup returns the most recent value under key as a T.
func lookup[T any](m *Metadata, key string) (T, bool) {
	var zero T
	v, ok := m.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
