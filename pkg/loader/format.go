package loader

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is the syntax of a model definition document.
type Format int

// Document formats.
const (
	// FormatAuto detects JSON by a leading '{' or '[' and falls back to YAML.
	FormatAuto Format = iota
	FormatYAML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// DetectFormat inspects the first non-whitespace byte of data: '{' selects
// JSON, anything else YAML.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// FormatFromPath maps a file extension to a format; unknown extensions
// yield FormatAuto.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}
