package iff

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Decode failure kinds. Every error returned by this package and by the
// decoders built on it matches exactly one of these with errors.Is.
var (
	// ErrTruncatedRecord indicates the stream ended before a declared
	// record or field length.
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrMalformedField indicates a fixed-shape field violated its format,
	// such as an unknown enum value or an unterminated string.
	ErrMalformedField = errors.New("malformed field")
	// ErrUnresolvedReference indicates an index or name that was never
	// defined.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// Malformed returns an ErrMalformedField carrying a formatted detail.
func Malformed(format string, args ...any) error {
	return errors.Wrapf(ErrMalformedField, format, args...)
}

// Unresolved returns an ErrUnresolvedReference carrying a formatted detail.
func Unresolved(format string, args ...any) error {
	return errors.Wrapf(ErrUnresolvedReference, format, args...)
}

func truncated(need, have int) error {
	return errors.Wrapf(ErrTruncatedRecord, "need %d bytes, have %d", need, have)
}

// Kind returns the failure kind of err, or nil if err is not one of the
// decode failure kinds.
func Kind(err error) error {
	for _, kind := range []error{ErrTruncatedRecord, ErrMalformedField, ErrUnresolvedReference} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// RecordError locates a decode failure within the record tree.
type RecordError struct {
	// Path names the records from the outermost to the one that failed,
	// e.g. ["surface", "block", "image"].
	Path []string
	// Offset is the absolute byte offset of the failing record.
	Offset int64

	Cause error
}

func (err *RecordError) Error() string {
	var s strings.Builder
	s.WriteString(strings.Join(err.Path, "/"))
	fmt.Fprintf(&s, " at 0x%x", err.Offset)
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err *RecordError) Unwrap() error {
	return err.Cause
}

// Within prefixes the record path of err with name. An error that carries
// no path yet becomes a RecordError located at offset.
func Within(err error, name string, offset int64) error {
	if err == nil {
		return nil
	}
	var re *RecordError
	if errors.As(err, &re) {
		re.Path = append([]string{name}, re.Path...)
		return err
	}
	return &RecordError{Path: []string{name}, Offset: offset, Cause: err}
}
