package docs

import (
	"errors"
	"fmt"
)

// Sentinel errors for document handling.
var (
	// ErrMalformedInput indicates that a document is not valid JSON.
	ErrMalformedInput = errors.New("document is malformed")

	// ErrTransformFailed indicates that a rewrite transform rejected the document.
	ErrTransformFailed = errors.New("document transform failed")

	// ErrFetchFailed indicates that a downstream document could not be fetched.
	ErrFetchFailed = errors.New("document fetch failed")

	// ErrUnknownDocument indicates that no endpoint matches the request.
	ErrUnknownDocument = errors.New("unknown document")
)

// DocumentError describes a document failure.
type DocumentError struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Document names the endpoint or URL involved, if known.
	Document string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	msg := e.Kind.Error()
	if e.Document != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Document)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the error kind.
func (e *DocumentError) Is(target error) bool {
	return target == e.Kind
}

func newDocumentError(kind error, document string, cause error) *DocumentError {
	return &DocumentError{Kind: kind, Document: document, Cause: cause}
}
