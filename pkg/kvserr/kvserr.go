package kvserr

import "fmt"

// Kind is one of the error categories the core distinguishes.
type Kind string

const (
	InvalidArgument Kind = "invalid_argument"
	BadEncoding     Kind = "bad_encoding"
	IsDirectory     Kind = "is_directory"
	NotDirectory    Kind = "not_directory"
	NotSupported    Kind = "not_supported"
	NoEntry         Kind = "no_entry"
	NoSpace         Kind = "no_space"
	Unrecoverable   Kind = "unrecoverable"
)

// Error pairs a Kind with an optional numeric sub-code and underlying
// cause.
type Error struct {
	Kind    Kind
	SubCode int
	Msg     string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, kvserr.New(kvserr.NoEntry, "")) works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Of returns the Kind of err if it is (or wraps) a *Error, and ok=true;
// otherwise ok is false.
func Of(err error) (kind Kind, ok bool) {
	var e *Error
	for err != nil {
		if ae, isErr := err.(*Error); isErr {
			e = ae
			break
		}
		u, hasUnwrap := err.(interface{ Unwrap() error })
		if !hasUnwrap {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
