package mremote

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedXML matches any *MalformedXMLError via errors.Is.
	ErrMalformedXML = errors.New("malformed XML")

	// ErrUnsupportedFormat is returned for well-formed XML without any
	// Node or Connection element.
	ErrUnsupportedFormat = errors.New("unsupported format: no Node or Connection elements found")
)

// MalformedXMLError wraps the decoder error that aborted parsing.
type MalformedXMLError struct {
	Err error
}

func (e *MalformedXMLError) Error() string {
	if e == nil || e.Err == nil {
		return ErrMalformedXML.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedXML, e.Err)
}

func (e *MalformedXMLError) Unwrap() error { return e.Err }

func (e *MalformedXMLError) Is(target error) bool { return target == ErrMalformedXML }
