package query

import (
	"errors"
	"fmt"

	"hermannm.dev/enumnames"
)

type ErrorKind uint8

const (
	// A caller passed a missing or malformed argument, such as an empty profile ID.
	InvalidArgument ErrorKind = iota + 1
	// The reporting service returned no result, or a result that could not be read.
	UpstreamFailure
	// A batch operation was called out of sequence.
	InvalidState
	// Credentials could not be loaded, or were rejected by the reporting service.
	AuthFailure
)

var errorKindNames = enumnames.NewMap(map[ErrorKind]string{
	InvalidArgument: "InvalidArgument",
	UpstreamFailure: "UpstreamFailure",
	InvalidState:    "InvalidState",
	AuthFailure:     "AuthFailure",
})

func (kind ErrorKind) IsValid() bool {
	return errorKindNames.ContainsEnumValue(kind)
}

func (kind ErrorKind) String() string {
	return errorKindNames.GetNameOrFallback(kind, "UnknownError")
}

func (kind ErrorKind) MarshalJSON() ([]byte, error) {
	return errorKindNames.MarshalToNameJSON(kind)
}

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Sentinels for use with errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrUpstreamFailure = &Error{Kind: UpstreamFailure}
	ErrInvalidState    = &Error{Kind: InvalidState}
	ErrAuthFailure     = &Error{Kind: AuthFailure}
)

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(cause error, kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (err *Error) Error() string {
	message := err.Message
	if message == "" {
		message = err.Kind.String()
	}

	if err.Cause == nil {
		return message
	}
	return fmt.Sprintf("%s: %v", message, err.Cause)
}

func (err *Error) Unwrap() error {
	return err.Cause
}

func (err *Error) Is(target error) bool {
	targetErr, ok := target.(*Error)
	return ok && targetErr.Message == "" && targetErr.Kind == err.Kind
}

// IsKind checks whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// KindOf returns the kind of the outermost *Error in err's chain, or false if there is none.
func KindOf(err error) (kind ErrorKind, ok bool) {
	var queryErr *Error
	if !errors.As(err, &queryErr) {
		return 0, false
	}
	return queryErr.Kind, true
}
