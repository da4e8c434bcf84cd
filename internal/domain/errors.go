package domain

import "errors"

var (
	ErrUnknownFormat        = errors.New("unknown format")
	ErrEmptyHeader          = errors.New("empty header")
	ErrHeaderMismatch       = errors.New("header mismatch")
	ErrRowParse             = errors.New("row parse error")
	ErrDuplicateBusinessKey = errors.New("duplicate business key")
	ErrTransformAborted     = errors.New("transform aborted")
	ErrDatabase             = errors.New("database error")
	ErrTransient            = errors.New("transient")
	ErrCancelled            = errors.New("cancelled")
	ErrNotFound             = errors.New("not found")
	ErrTerminal             = errors.New("upload already in terminal status")
)

// ErrorKind returns the journal code for err, or "" when err carries no known kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrUnknownFormat):
		return "UnknownFormat"
	case errors.Is(err, ErrEmptyHeader):
		return "EmptyHeader"
	case errors.Is(err, ErrHeaderMismatch):
		return "HeaderMismatch"
	case errors.Is(err, ErrDuplicateBusinessKey):
		return "DuplicateBusinessKey"
	case errors.Is(err, ErrTransformAborted):
		return "TransformAborted"
	case errors.Is(err, ErrDatabase):
		return "DatabaseError"
	case errors.Is(err, ErrRowParse):
		return "RowParseError"
	}
	return ""
}
