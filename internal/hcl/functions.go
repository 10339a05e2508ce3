package hcl

import (
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// pathJoinFunc joins path elements with fsys.Join, so URL roots stay URLs.
var pathJoinFunc = function.New(&function.Spec{
	VarParam: &function.Parameter{Name: "elems", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		elems := make([]string, len(args))
		for i, a := range args {
			elems[i] = a.AsString()
		}
		return cty.StringVal(fsys.Join(elems...)), nil
	},
})

// functions available to file expressions.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"compact":   stdlib.CompactFunc,
		"concat":    stdlib.ConcatFunc,
		"distinct":  stdlib.DistinctFunc,
		"format":    stdlib.FormatFunc,
		"lower":     stdlib.LowerFunc,
		"path_join": pathJoinFunc,
	}
}
