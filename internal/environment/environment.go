// Package environment resolves the engine bundle and game asset roots from
// the environment descriptor shipped next to the shell executable.
package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsys"
)

// DescriptorFile is the well-known descriptor name, relative to the base dir.
const DescriptorFile = "env.avd"

// URL parameters that override descriptor roots when the shell is opened
// with them.
const (
	ParamAssetsRoot = "assets_root"
	ParamEngineRoot = "engine_root"
)

const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["game_assets_root", "engine_bundle_root"],
  "properties": {
    "game_assets_root":   {"type": "string", "minLength": 1},
    "engine_bundle_root": {"type": "string", "minLength": 1}
  }
}`

var schema = jsonschema.MustCompileString("env.avd.schema.json", descriptorSchema)

// Descriptor holds the two resolved roots.
type Descriptor struct {
	GameAssetsRoot   string `json:"game_assets_root"`
	EngineBundleRoot string `json:"engine_bundle_root"`
}

// Resolver reads and resolves the descriptor through a FileSystem.
type Resolver struct {
	fs fsys.FileSystem
}

// NewResolver creates a resolver reading through fs.
func NewResolver(fs fsys.FileSystem) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve reads DescriptorFile under baseDir and returns both roots resolved:
// URLs are kept as-is, everything else is joined onto baseDir.
func (r *Resolver) Resolve(ctx context.Context, baseDir string) (Descriptor, error) {
	logger := ctxlog.FromContext(ctx)
	path := r.fs.Join(baseDir, DescriptorFile)
	logger.Debug("Reading environment descriptor.", "path", path)

	content, err := r.fs.ReadFile(ctx, path)
	if err != nil {
		return Descriptor{}, booterr.New(booterr.EnvironmentRead, "environment.resolve", path, err)
	}

	raw, err := Parse(path, content)
	if err != nil {
		return Descriptor{}, err
	}

	resolved := Descriptor{
		GameAssetsRoot:   ResolveRoot(baseDir, raw.GameAssetsRoot),
		EngineBundleRoot: ResolveRoot(baseDir, raw.EngineBundleRoot),
	}
	logger.Debug("Environment roots resolved.",
		"game_assets_root", resolved.GameAssetsRoot,
		"engine_bundle_root", resolved.EngineBundleRoot,
	)
	return resolved, nil
}

// Parse validates and decodes descriptor content without resolving roots.
func Parse(path string, content []byte) (Descriptor, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Descriptor{}, booterr.FromJSON(booterr.EnvironmentParse, "environment.parse", path, content, err)
	}
	if err := schema.Validate(doc); err != nil {
		return Descriptor{}, booterr.New(booterr.EnvironmentParse, "environment.parse", path, fmt.Errorf("invalid descriptor: %w", err))
	}

	var d Descriptor
	if err := json.Unmarshal(content, &d); err != nil {
		return Descriptor{}, booterr.FromJSON(booterr.EnvironmentParse, "environment.parse", path, content, err)
	}
	return d, nil
}

// ResolveRoot classifies root: an HTTP(S) URL is returned unchanged, any
// other value is joined onto baseDir.
func ResolveRoot(baseDir, root string) string {
	root = strings.TrimSpace(root)
	if fsys.IsHTTPURL(root) {
		return root
	}
	return fsys.Join(baseDir, root)
}

// WithOverrides applies routing URL parameters on top of a resolved
// descriptor. Override values go through the same classification.
func (d Descriptor) WithOverrides(baseDir string, params url.Values) Descriptor {
	if v := params.Get(ParamAssetsRoot); v != "" {
		d.GameAssetsRoot = ResolveRoot(baseDir, v)
	}
	if v := params.Get(ParamEngineRoot); v != "" {
		d.EngineBundleRoot = ResolveRoot(baseDir, v)
	}
	return d
}
