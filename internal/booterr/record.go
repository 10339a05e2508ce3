package booterr

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Record is the single normalized shape every fatal error takes before it is
// displayed.
type Record struct {
	Type        string         `json:"type"`
	File        string         `json:"file,omitempty"`
	LineNumber  int            `json:"lineNumber,omitempty"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`
}

// Normalize flattens any error into a Record. Unclassified errors become
// Internal.
func Normalize(err error) Record {
	if err == nil {
		return Record{Type: string(Internal), Description: "unknown error", Data: map[string]any{}}
	}

	rec := Record{Type: string(Internal), Description: err.Error(), Data: map[string]any{}}

	var be *Error
	if errors.As(err, &be) {
		rec.Type = string(be.Kind)
		rec.File = be.Path
		rec.LineNumber = be.Line
		if be.Err != nil {
			rec.Description = be.Err.Error()
		}
		if be.Op != "" {
			rec.Data["op"] = be.Op
		}
		if be.Path != "" {
			rec.Data["file"] = be.Path
		}
		if be.Line > 0 {
			rec.Data["lineNumber"] = be.Line
		}
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	if len(chain) > 1 {
		rec.Data["chain"] = chain
	}
	return rec
}

// FromJSON classifies a JSON decoding failure of content, computing the line
// number from the decoder's byte offset when it reports one.
func FromJSON(kind Kind, op, path string, content []byte, err error) *Error {
	be := New(kind, op, path, err)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		be.Line = LineAt(content, syntaxErr.Offset)
	case errors.As(err, &typeErr):
		be.Line = LineAt(content, typeErr.Offset)
	}
	return be
}

// LineAt returns the 1-based line containing byte offset in content.
func LineAt(content []byte, offset int64) int {
	if offset <= 0 {
		return 1
	}
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
