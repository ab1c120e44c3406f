package loader

import (
	"strings"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"golang.org/x/text/cases"
)

var modelKinds = map[string]core.ModelKind{
	"table": core.ModelTable,
	"tree":  core.ModelTree,
}

var sourceKinds = map[string]core.DataSourceKind{
	"query":  core.SourceQuery,
	"manual": core.SourceManual,
}

var columnTypes = map[string]core.ColumnType{
	"string":   core.TypeString,
	"text":     core.TypeString,
	"integer":  core.TypeInteger,
	"int":      core.TypeInteger,
	"double":   core.TypeDouble,
	"float":    core.TypeDouble,
	"boolean":  core.TypeBoolean,
	"bool":     core.TypeBoolean,
	"datetime": core.TypeDateTime,
	"date":     core.TypeDate,
	"time":     core.TypeTime,
	"uuid":     core.TypeUUID,
	"binary":   core.TypeBinary,
	"json":     core.TypeJSON,
	"array":    core.TypeArray,
	"custom":   core.TypeCustom,
}

var alignments = map[string]core.Alignment{
	"left":    core.AlignLeft,
	"center":  core.AlignCenter,
	"right":   core.AlignRight,
	"justify": core.AlignJustify,
}

var sortOrders = map[string]core.SortOrder{
	"asc":        core.Ascending,
	"ascending":  core.Ascending,
	"desc":       core.Descending,
	"descending": core.Descending,
}

var errorActions = map[string]core.ErrorAction{
	"show_message": core.OnErrorShowMessage,
	"ignore":       core.OnErrorIgnore,
	"log":          core.OnErrorLog,
	"callback":     core.OnErrorCallback,
}

var validatorKinds = map[string]core.ValidatorKind{
	"none":     core.ValidateNone,
	"regexp":   core.ValidateRegexp,
	"regex":    core.ValidateRegexp,
	"range":    core.ValidateRange,
	"length":   core.ValidateLength,
	"required": core.ValidateRequired,
	"custom":   core.ValidateCustom,
}

// enumParser resolves enum strings case-insensitively and records a warning
// for each unknown value.
type enumParser struct {
	diags core.Diagnostics
}

func parseEnum[T any](p *enumParser, table map[string]T, raw string, def T, path string) T {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if v, ok := table[cases.Fold().String(raw)]; ok {
		return v
	}
	p.diags = append(p.diags, core.Warnf(path, "unknown value %q, using default", raw))
	return def
}
