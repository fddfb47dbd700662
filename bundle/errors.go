package bundle

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the codec matches exactly one of these
// with errors.Is (CountMismatch also matches SchemaMismatch).
var (
	ErrMalformedArchive   = errors.New("malformed archive")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrCountMismatch      = errors.New("file count mismatch")
	ErrUnrecognizedFormat = errors.New("unrecognized bundle format")
	ErrTruncatedPayload   = errors.New("truncated payload")
	ErrUnsafeFilename     = errors.New("unsafe filename")
	ErrEmptyInput         = errors.New("no files to encode")
	ErrPayloadTooLarge    = errors.New("payload too large")
)

// CodecError carries a kind, a human-readable message and an optional cause
type CodecError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *CodecError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CodecError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func codecErrorf(kind error, format string, args ...any) error {
	return &CodecError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapCodecError(kind error, err error, format string, args ...any) error {
	return &CodecError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
