package starlark

import (
	"testing"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func eval(t *testing.T, expr string, globals starlark.StringDict) starlark.Value {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	v, err := starlark.EvalOptions(fileOptions, thread, "test", expr, globals)
	require.NoError(t, err)
	return v
}

func TestPredeclared(t *testing.T) {
	row := core.NewRow(
		core.Field{Name: "price", Value: 2.5},
		core.Field{Name: "qty", Value: 4},
		core.Field{Name: "unit price", Value: 1},
		core.Field{Name: "if", Value: "kw"},
		core.Field{Name: "note", Value: nil},
	)
	globals, err := Predeclared("orders", row)
	require.NoError(t, err)

	assert.Equal(t, starlark.Float(10), eval(t, "price * qty", globals))
	assert.Equal(t, starlark.MakeInt(1), eval(t, `row["unit price"]`, globals))
	assert.Equal(t, starlark.String("kw"), eval(t, `row["if"]`, globals))
	assert.Equal(t, starlark.String("orders"), eval(t, "model.name", globals))
	assert.Equal(t, starlark.String("-"), eval(t, `coalesce(note, "-")`, globals))

	assert.NotContains(t, globals, "unit price")
	assert.NotContains(t, globals, "if")
}

func TestPredeclared_ReservedNamesKeepBuiltins(t *testing.T) {
	row := core.NewRow(core.Field{Name: "model", Value: "x"}, core.Field{Name: "row", Value: 1})
	globals, err := Predeclared("m", row)
	require.NoError(t, err)

	assert.Equal(t, starlark.String("m"), eval(t, "model.name", globals))
	assert.Equal(t, starlark.String("x"), eval(t, `row["model"]`, globals))
}

func TestCoalesce(t *testing.T) {
	globals := starlark.StringDict{"coalesce": coalesce}
	assert.Equal(t, starlark.None, eval(t, "coalesce()", globals))
	assert.Equal(t, starlark.MakeInt(0), eval(t, "coalesce(None, 0, 1)", globals))

	thread := &starlark.Thread{}
	_, err := starlark.EvalOptions(fileOptions, thread, "kw", "coalesce(a=1)", globals)
	assert.Error(t, err)
}

func TestIsIdent(t *testing.T) {
	for name, want := range map[string]bool{
		"price": true, "_x": true, "col2": true,
		"2col": false, "unit price": false, "for": false, "row": false, "": false,
	} {
		assert.Equal(t, want, isIdent(name), name)
	}
}
