// Package booterr defines the error taxonomy shared by every bootstrap stage
// and the normalized record handed to the diagnostic surface.
package booterr

import (
	"errors"
	"fmt"
)

// Kind classifies a bootstrap failure. A Kind is itself an error so callers
// can write errors.Is(err, booterr.SettingsParse).
type Kind string

const (
	EnvironmentRead    Kind = "EnvironmentReadError"
	EnvironmentParse   Kind = "EnvironmentParseError"
	SettingsParse      Kind = "SettingsParseError"
	ResourceResolution Kind = "ResourceResolutionError"
	PreloadFile        Kind = "PreloadFileError"
	PreloadUI          Kind = "PreloadUIError"
	// Internal covers recovered panics and anything that reached the
	// pipeline boundary without a classification.
	Internal Kind = "InternalError"
	// Stage marks a best-effort stage failure that was logged and skipped.
	Stage Kind = "StageError"
)

// Error implements the error interface for Kind.
func (k Kind) Error() string { return string(k) }

// Fatal reports whether a failure of this kind aborts the pipeline on its own.
// PreloadFile is only fatal when the batch it belongs to is mandatory, which
// the batcher decides.
func (k Kind) Fatal() bool {
	return k != PreloadFile && k != Stage
}

// Error is a classified bootstrap failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "environment.resolve".
	Op string
	// Path is the file or URL involved, when there is one.
	Path string
	// Line is the 1-based line inside Path, 0 when unknown.
	Line int
	Err  error
}

// New builds a classified error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Path != "" {
		msg += " (" + e.Path
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target against the error's classification.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the classification of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
