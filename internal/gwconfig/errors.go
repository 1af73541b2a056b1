package gwconfig

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FieldError is one problem found in a document. Path is dotted, using the
// persisted (camelCase) field names; Reason never includes field values.
type FieldError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ValidationErrors is returned when a document does not match the schema.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "invalid config"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		if fe.Path == "" {
			parts[i] = fe.Reason
			continue
		}
		parts[i] = fe.Path + ": " + fe.Reason
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// StatusCode maps validation failures to 400.
func (e ValidationErrors) StatusCode() int { return http.StatusBadRequest }

func (e ValidationErrors) sorted() ValidationErrors {
	sort.SliceStable(e, func(i, j int) bool { return e[i].Path < e[j].Path })
	return e
}

// AsValidation extracts ValidationErrors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidation reports whether err is (or wraps) ValidationErrors.
func IsValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

// SyntaxError reports a document that could not be parsed at all.
type SyntaxError struct {
	Format Format
	Err    error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("malformed %s document: %v", e.Format, e.Err) }

func (e *SyntaxError) Unwrap() error { return e.Err }

func (e *SyntaxError) StatusCode() int { return http.StatusBadRequest }

// IsSyntax reports whether err is (or wraps) a SyntaxError.
func IsSyntax(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
