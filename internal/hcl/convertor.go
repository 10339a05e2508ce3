package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/avgboot/internal/config"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Files evaluates the batch's file expression and returns the file list.
// Null elements are dropped; an empty string is an error.
func (c *Converter) Files(ctx context.Context, batch *config.PreloadBatch, vars config.Variables) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	if batch.Files == nil {
		return nil, nil
	}

	val, diags := batch.Files.Value(evalContext(vars))
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}

	listType := cty.List(cty.String)
	converted, err := convert.Convert(val, listType)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), listType.FriendlyName(), err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", converted.Type().FriendlyName(),
		)
	}
	if !converted.IsWhollyKnown() {
		return nil, fmt.Errorf("file list of %q is not known", batch.Name)
	}

	files := make([]string, 0, converted.LengthInt())
	for it := converted.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			continue
		}
		s := v.AsString()
		if s == "" {
			return nil, fmt.Errorf("empty file path in %q; wrap the list in compact() to drop empty entries", batch.Name)
		}
		files = append(files, s)
	}
	return files, nil
}

func evalContext(vars config.Variables) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"engine_dir":         cty.StringVal(vars.EngineDir),
			"data_root":          cty.StringVal(vars.DataRoot),
			"assets_root":        cty.StringVal(vars.AssetsRoot),
			"default_font":       cty.StringVal(vars.DefaultFont),
			"loading_background": cty.StringVal(vars.LoadingBackground),
		},
		Functions: functions(),
	}
}
