package core

// ModelKind is the shape of the data a schema describes.
type ModelKind int

// Model kinds.
const (
	ModelTable ModelKind = iota
	ModelTree
)

func (k ModelKind) String() string {
	if k == ModelTree {
		return "tree"
	}
	return "table"
}

// DataSourceKind says where rows come from.
type DataSourceKind int

// Data source kinds.
const (
	// SourceQuery loads rows through the schema's load query.
	SourceQuery DataSourceKind = iota
	// SourceManual means rows are supplied by the embedder.
	SourceManual
)

func (s DataSourceKind) String() string {
	if s == SourceManual {
		return "manual"
	}
	return "query"
}

// ColumnType is the declared value type of a column or query argument.
type ColumnType int

// Column types.
const (
	TypeString ColumnType = iota
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeDateTime
	TypeDate
	TypeTime
	TypeUUID
	TypeBinary
	TypeJSON
	TypeArray
	TypeCustom
)

var columnTypeNames = [...]string{
	TypeString:   "string",
	TypeInteger:  "integer",
	TypeDouble:   "double",
	TypeBoolean:  "boolean",
	TypeDateTime: "datetime",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeUUID:     "uuid",
	TypeBinary:   "binary",
	TypeJSON:     "json",
	TypeArray:    "array",
	TypeCustom:   "custom",
}

func (t ColumnType) String() string {
	if t < 0 || int(t) >= len(columnTypeNames) {
		return "unknown"
	}
	return columnTypeNames[t]
}

// Alignment is the horizontal text alignment of a column.
type Alignment int

// Alignments.
const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// SortOrder is the direction of a sort rule.
type SortOrder int

// Sort orders.
const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// ErrorAction is what a consumer should do when a query fails.
type ErrorAction int

// Error actions.
const (
	OnErrorShowMessage ErrorAction = iota
	OnErrorIgnore
	OnErrorLog
	OnErrorCallback
)

func (e ErrorAction) String() string {
	switch e {
	case OnErrorIgnore:
		return "ignore"
	case OnErrorLog:
		return "log"
	case OnErrorCallback:
		return "callback"
	default:
		return "show_message"
	}
}

// ValidatorKind selects how a column validator checks values.
type ValidatorKind int

// Validator kinds.
const (
	ValidateNone ValidatorKind = iota
	ValidateRegexp
	ValidateRange
	ValidateLength
	ValidateRequired
	ValidateCustom
)

func (v ValidatorKind) String() string {
	switch v {
	case ValidateRegexp:
		return "regexp"
	case ValidateRange:
		return "range"
	case ValidateLength:
		return "length"
	case ValidateRequired:
		return "required"
	case ValidateCustom:
		return "custom"
	default:
		return "none"
	}
}
