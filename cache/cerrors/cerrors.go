// Package cerrors defines the builder's error taxonomy so callers can use
// errors.Is/errors.As against stable sentinel kinds instead of matching on
// message text.
package cerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a builder error into one of the abstract kinds named by
// the design: input problems, unresolved dependencies, unsupported
// formats, capacity overflows, I/O failures, and unresolved symbols.
type Kind int

const (
	// InputInvalid covers no inputs, no cache-eligible dylibs, or an
	// unsupported Mach-O slice.
	InputInvalid Kind = iota
	// DependencyMissing covers a non-weak dependency absent from the
	// input closure.
	DependencyMissing
	// FormatUnsupported covers ObjC/message-ref shapes the builder
	// refuses to process: legacy __OBJC sections, unsupported fixup
	// chain formats, out-of-range relative method lists.
	FormatUnsupported
	// CapacityExceeded covers VM/file overflow of a region, sub-cache,
	// or an acceleration table's reserved buffer.
	CapacityExceeded
	// IOFailure covers temp-file create/truncate/mmap failures.
	IOFailure
	// SymbolUnresolved covers a required libpthread/libdyld symbol
	// missing; callers may downgrade this to a warning.
	SymbolUnresolved
)

func (k Kind) String() string {
	switch k {
	case InputInvalid:
		return "InputInvalid"
	case DependencyMissing:
		return "DependencyMissing"
	case FormatUnsupported:
		return "FormatUnsupported"
	case CapacityExceeded:
		return "CapacityExceeded"
	case IOFailure:
		return "IOFailure"
	case SymbolUnresolved:
		return "SymbolUnresolved"
	default:
		return "Unknown"
	}
}

// Error is a builder error tagged with a Kind, suitable for errors.Is
// against the package-level sentinels below and errors.As for the
// underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, cerrors.New(cerrors.InputInvalid, "", nil)) style checks,
// and also supports matching directly against the Kind sentinels below.
func (e *Error) Is(target error) bool {
	var k *Error
	if errors.As(target, &k) {
		return k.Kind == e.Kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Wrap is a convenience for New(kind, fmt.Sprintf(format, args...), err).
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Sentinels for errors.Is against a bare Kind, e.g.:
//
//	if errors.Is(err, cerrors.ErrNoInputs) { ... }
var (
	ErrNoInputs             = New(InputInvalid, "no inputs registered", nil)
	ErrNoCacheDylibs        = New(InputInvalid, "no cache-eligible dylibs found", nil)
	ErrUnsupportedSlice     = New(InputInvalid, "no slice matching the configured platform/arch", nil)
	ErrDependencyNotFound   = New(DependencyMissing, "dependency not found", nil)
	ErrMessageRefsPresent   = New(FormatUnsupported, "objc message refs present", nil)
	ErrLegacyObjCSection    = New(FormatUnsupported, "legacy __OBJC section present", nil)
	ErrUnsupportedFixups    = New(FormatUnsupported, "unsupported fixup format", nil)
	ErrMethodListOutOfRange = New(FormatUnsupported, "relative method list outside __objc_selrefs", nil)
	ErrCapacityExceeded     = New(CapacityExceeded, "capacity exceeded", nil)
	ErrIOFailure            = New(IOFailure, "i/o failure", nil)
	ErrSymbolUnresolved     = New(SymbolUnresolved, "required symbol unresolved", nil)
)
