package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// coalesce returns its first argument that is not None.
var coalesce = starlark.NewBuiltin("coalesce", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	for _, a := range args {
		if a != starlark.None {
			return a, nil
		}
	}
	return starlark.None, nil
})

// Predeclared returns the globals visible to a calculated column expression:
//
//	row       dict of every column value of the current row
//	model     struct with the schema's name
//	coalesce  first non-None argument
//
// Each column whose name is a valid identifier is also bound directly, so
// `price * qty` works as well as `row["price"] * row["qty"]`.
func Predeclared(model string, row core.Row) (starlark.StringDict, error) {
	dict := starlark.NewDict(row.Len())
	globals := starlark.StringDict{
		"model": starlarkstruct.FromStringDict(starlark.String("model"), starlark.StringDict{
			"name": starlark.String(model),
		}),
		"coalesce": coalesce,
	}

	for _, f := range row.Fields() {
		v, err := ToStarlark(f.Value)
		if err != nil {
			v = starlark.String(core.ValueString(f.Value))
		}
		if err := dict.SetKey(starlark.String(f.Name), v); err != nil {
			return nil, err
		}
		if isIdent(f.Name) {
			if _, reserved := globals[f.Name]; !reserved {
				globals[f.Name] = v
			}
		}
	}
	globals["row"] = dict
	return globals, nil
}

func isIdent(name string) bool {
	if name == "" || name == "row" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return !keywords[name]
}

var keywords = map[string]bool{
	"and": true, "break": true, "continue": true, "def": true, "elif": true,
	"else": true, "for": true, "if": true, "in": true, "lambda": true,
	"load": true, "not": true, "or": true, "pass": true, "return": true,
	"while": true, "None": true, "True": true, "False": true,
}
