// Package starlark evaluates calculated column expressions with Starlark.
package starlark

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"go.starlark.net/starlark"
)

// ToStarlark converts a cell value to a Starlark value.
//
// Drivers and result stores hand back a wide range of types: every integer
// and float kind, []byte for text, json.Number from stored results,
// time.Time and Stringer values such as UUIDs. Rows become dicts in column
// order. Anything else is an error.
func ToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case string:
		return starlark.String(val), nil
	case []byte:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return starlark.Float(f), nil
	case time.Time:
		return starlark.String(val.Format(time.RFC3339Nano)), nil
	case core.Row:
		dict := starlark.NewDict(val.Len())
		for _, f := range val.Fields() {
			if err := setKey(dict, f.Name, f.Value); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			if err := setKey(dict, k, val[k]); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case fmt.Stringer:
		return starlark.String(val.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float()), nil
	case reflect.String:
		return starlark.String(rv.String()), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func setKey(dict *starlark.Dict, key string, v any) error {
	sv, err := ToStarlark(v)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return dict.SetKey(starlark.String(key), sv)
}

// ToGo converts a Starlark value back to a cell value: string, int64,
// float64, bool, []any, map[string]any or nil. Integers beyond int64 and
// values of other types come back as their Starlark text.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		return val.String(), nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", string(key), err)
			}
			out[string(key)] = gv
		}
		return out, nil
	case starlark.Indexable:
		// lists and tuples
		out := make([]any, val.Len())
		for i := range out {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	default:
		return val.String(), nil
	}
}
