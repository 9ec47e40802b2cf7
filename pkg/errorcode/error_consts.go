package errorcode

import (
	"errors"
	"strings"
)

// Codes the authority appends to the messages of rejected calls. A rejection carrying one of them is a verdict
// on the request, not a failure of the authority itself.
const (
	CodeNotFound       = "~NOTFOUND~"
	CodeForbidden      = "~FORBIDDEN~"
	CodeNotImplemented = "~NOTIMPLEMENTED~"
)

// ErrorNotFound means the addressed record, profile or permission does not exist.
var ErrorNotFound = errors.New(CodeNotFound)

// ErrorForbidden means the caller is known but lacks the permission for the call.
var ErrorForbidden = errors.New(CodeForbidden)

// ErrorNotImplemented means the authority does not support the call.
var ErrorNotImplemented = errors.New(CodeNotImplemented)

// FromMessage maps an error message ending in one of the codes to its predefined error. It returns nil for any
// other message.
func FromMessage(msg string) error {
	switch {
	case strings.HasSuffix(msg, CodeForbidden):
		return ErrorForbidden
	case strings.HasSuffix(msg, CodeNotFound):
		return ErrorNotFound
	case strings.HasSuffix(msg, CodeNotImplemented):
		return ErrorNotImplemented
	default:
		return nil
	}
}
