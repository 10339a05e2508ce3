// Package settings loads the engine-wide and game-level setting stores.
// Both are read once during bootstrap and are read-only afterwards.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"gopkg.in/yaml.v3"
)

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func isYAML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decodeDocument parses content as JSON, or YAML when name says so, and
// returns the document in its JSON form so schema validation and typed
// decoding see the same values.
func decodeDocument(op, name string, content []byte) (map[string]any, []byte, error) {
	if isYAML(name) {
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			be := booterr.New(booterr.SettingsParse, op, name, err)
			if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
				be.Line, _ = strconv.Atoi(m[1])
			}
			return nil, nil, be
		}
		if doc == nil {
			return nil, nil, booterr.New(booterr.SettingsParse, op, name, errors.New("document is empty"))
		}
		normalized, err := json.Marshal(doc)
		if err != nil {
			return nil, nil, booterr.New(booterr.SettingsParse, op, name, fmt.Errorf("unsupported yaml value: %w", err))
		}
		content = normalized
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, booterr.FromJSON(booterr.SettingsParse, op, name, content, err)
	}
	if doc == nil {
		return nil, nil, booterr.New(booterr.SettingsParse, op, name, errors.New("document must be an object"))
	}
	end := dec.InputOffset()
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		be := booterr.New(booterr.SettingsParse, op, name, errors.New("unexpected content after the top-level object"))
		rest := bytes.TrimLeft(content[end:], " \t\r\n")
		be.Line = booterr.LineAt(content, int64(len(content)-len(rest)+1))
		return nil, nil, be
	}
	return doc, content, nil
}

// lookup resolves a dotted key against a nested document. A literal key
// containing dots wins over traversal.
func lookup(doc map[string]any, key string) (any, bool) {
	if v, ok := doc[key]; ok {
		return v, true
	}
	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(t); err == nil {
			return i, true
		}
	}
	return 0, false
}
