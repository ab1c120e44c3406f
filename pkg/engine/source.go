package engine

import (
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/loader"
)

// Source produces a schema document. The executor keeps its source so
// Reload can read it again.
type Source interface {
	Load() (*core.ModelSchema, core.Diagnostics, error)
	String() string
}

type fileSource struct {
	path string
}

// FileSource reads the schema from a YAML or JSON file.
func FileSource(path string) Source { return fileSource{path: path} }

func (s fileSource) Load() (*core.ModelSchema, core.Diagnostics, error) {
	return loader.LoadFile(s.path)
}

func (s fileSource) String() string { return s.path }

// Path returns the file the source reads.
func (s fileSource) Path() string { return s.path }

type bytesSource struct {
	data   []byte
	format loader.Format
}

// BytesSource loads the schema from an in-memory document.
func BytesSource(data []byte, format loader.Format) Source {
	return bytesSource{data: data, format: format}
}

func (s bytesSource) Load() (*core.ModelSchema, core.Diagnostics, error) {
	return loader.Load(s.data, s.format)
}

func (s bytesSource) String() string { return "<" + s.format.String() + " document>" }

// build loads src and validates the result. Warnings are returned along
// with a usable schema; any error diagnostic rejects it.
func build(src Source) (*core.ModelSchema, core.Diagnostics, error) {
	s, diags, err := src.Load()
	if err != nil {
		return nil, diags, err
	}
	return check(s, diags)
}

func check(s *core.ModelSchema, diags core.Diagnostics) (*core.ModelSchema, core.Diagnostics, error) {
	diags = append(diags, core.Validate(s)...)
	if diags.HasErrors() {
		return nil, diags, &core.ValidationError{Diagnostics: diags}
	}
	return s, diags, nil
}
