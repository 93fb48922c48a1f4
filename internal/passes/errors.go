package passes

import (
	"errors"
	"fmt"

	"github.com/gnolang/flatssa/internal/tree"
)

var (
	// ErrUnsupported marks constructs the converter rejects outright.
	ErrUnsupported = errors.New("unsupported construct")
	// ErrUnprovable marks a totality or definedness proof failure.
	ErrUnprovable = errors.New("unprovable totality")
	// ErrIncompleteGuard is returned when folding a guarded sequence
	// in strict mode runs out of entries before an unguarded one.
	ErrIncompleteGuard = errors.New("guarded sequence has no unconditional entry")
	// ErrInternal marks a broken invariant inside the converter.
	ErrInternal = errors.New("internal error")
)

// UnsupportedError reports a construct the converter cannot handle.
type UnsupportedError struct {
	Construct string
	Pos       tree.Span
}

func (e *UnsupportedError) Error() string {
	if e.Pos.Valid() {
		return fmt.Sprintf("line %d: unsupported construct: %s", e.Pos.Start, e.Construct)
	}
	return "unsupported construct: " + e.Construct
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// UnprovableError reports a path the converter cannot prove returns,
// or a name it cannot prove defined.
type UnprovableError struct {
	Reason string
	Name   string
	Pos    tree.Span
}

func (e *UnprovableError) Error() string {
	msg := e.Reason
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Name)
	}
	if e.Pos.Valid() {
		return fmt.Sprintf("line %d: %s", e.Pos.Start, msg)
	}
	return msg
}

func (e *UnprovableError) Unwrap() error { return ErrUnprovable }

func unsupported(construct string, pos tree.Span) error {
	return &UnsupportedError{Construct: construct, Pos: pos}
}

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInternal}, args...)...)
}
