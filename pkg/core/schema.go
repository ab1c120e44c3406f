package core

import (
	"slices"
	"sort"
	"time"
)

// ModelSchema is the declarative description of a tabular model.
//
// A schema is built once by the loader, checked by Validate and treated as
// immutable afterwards. Code holding a *ModelSchema obtained from an executor
// must not mutate it; use Clone to derive a modified copy.
type ModelSchema struct {
	Name        string
	Kind        ModelKind
	Description string
	Version     string

	Source    DataSourceKind
	Editable  bool
	ReadOnly  bool
	LoadQuery string

	Columns     []Column
	PrimaryKeys []string

	HorizontalHeaders []string
	Sorting           []SortRule
	Queries           map[string]Query

	DefaultErrorPolicy ErrorPolicy
	CallbackRequired   bool
	DefaultRowTooltip  string
	ShowNumeration     bool

	Performance  PerformanceSettings
	Security     SecuritySettings
	Localization LocalizationSettings
}

// Column describes one column of the model.
type Column struct {
	Name        string
	Type        ColumnType
	DisplayName string
	Tooltip     string
	Alignment   Alignment

	Visible    bool
	Editable   bool
	PrimaryKey bool
	Unique     bool
	Indexed    bool

	Validator Validator

	// Calculated columns are derived from other columns of the same row.
	Calculated bool
	Expression string
	DependsOn  []string

	// Foreign key metadata.
	ReferenceTable  string
	ReferenceColumn string
}

// Header returns the display name, falling back to the column name.
func (c Column) Header() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Validator constrains the values a column accepts.
type Validator struct {
	Kind    ValidatorKind
	Pattern string
	// Min and Max bound a range validator; nil means unbounded.
	Min *float64
	Max *float64
	// MinLength and MaxLength bound a length validator; MaxLength 0 means unbounded.
	MinLength int
	MaxLength int
	// CustomName names an embedder-provided validator for ValidateCustom.
	CustomName string
	Message    string
}

// Query is a named, parameterized query template.
type Query struct {
	Name string
	// SQL holds the template text with ${name} placeholders.
	SQL         string
	Arguments   []QueryArgument
	OnError     ErrorAction
	Message     string
	Description string
	// Timeout is declared configuration only; the executor does not enforce it.
	Timeout       time.Duration
	Transactional bool
	ReadOnly      bool
}

// Argument returns the argument with the given name.
func (q Query) Argument(name string) (QueryArgument, bool) {
	for _, a := range q.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return QueryArgument{}, false
}

// QueryArgument declares one parameter of a query.
type QueryArgument struct {
	Name        string
	Type        ColumnType
	Optional    bool
	Default     any
	Description string
}

// SortRule orders rows by one column.
type SortRule struct {
	Column   string
	Order    SortOrder
	Priority int
}

// ErrorPolicy is the error reaction configured for a schema or query.
type ErrorPolicy struct {
	OnError ErrorAction
	// Message may contain ${last_error}, replaced by FormatError.
	Message string
}

// PerformanceSettings holds throughput related knobs.
type PerformanceSettings struct {
	LazyLoading     bool
	BatchSize       int
	EnableCaching   bool
	CacheSize       int
	AsyncOperations bool
	// MaxConcurrentQueries caps running async operations; 0 means unbounded.
	MaxConcurrentQueries int
}

// SecuritySettings holds input hygiene settings.
type SecuritySettings struct {
	SQLInjectionProtection bool
	InputSanitization      bool
	AllowedOperations      []string
	ForbiddenKeywords      []string
}

// LocalizationSettings holds formatting preferences.
type LocalizationSettings struct {
	Locale         string
	DateFormat     string
	TimeFormat     string
	DateTimeFormat string
}

// FindColumn returns the column with the given name.
func (s *ModelSchema) FindColumn(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// FindQuery returns the query with the given name.
func (s *ModelSchema) FindQuery(name string) (Query, bool) {
	q, ok := s.Queries[name]
	return q, ok
}

// QueryNames returns all query names, sorted.
func (s *ModelSchema) QueryNames() []string {
	names := make([]string, 0, len(s.Queries))
	for name := range s.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VisibleColumns returns the names of visible columns in declaration order.
func (s *ModelSchema) VisibleColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Visible {
			out = append(out, c.Name)
		}
	}
	return out
}

// EditableColumns returns the names of visible, editable columns.
func (s *ModelSchema) EditableColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Editable && c.Visible {
			out = append(out, c.Name)
		}
	}
	return out
}

// Headers returns the horizontal headers, derived from visible columns when
// none were configured.
func (s *ModelSchema) Headers() []string {
	if len(s.HorizontalHeaders) > 0 {
		return slices.Clone(s.HorizontalHeaders)
	}
	var out []string
	for _, c := range s.Columns {
		if c.Visible {
			out = append(out, c.Header())
		}
	}
	return out
}

// IsValid reports whether Validate finds no errors.
func (s *ModelSchema) IsValid() bool {
	return !Validate(s).HasErrors()
}

// Clone returns a deep copy of the schema.
func (s *ModelSchema) Clone() *ModelSchema {
	if s == nil {
		return nil
	}
	c := *s
	c.Columns = make([]Column, len(s.Columns))
	for i, col := range s.Columns {
		col.DependsOn = slices.Clone(col.DependsOn)
		col.Validator.Min = clonePtr(col.Validator.Min)
		col.Validator.Max = clonePtr(col.Validator.Max)
		c.Columns[i] = col
	}
	c.PrimaryKeys = slices.Clone(s.PrimaryKeys)
	c.HorizontalHeaders = slices.Clone(s.HorizontalHeaders)
	c.Sorting = slices.Clone(s.Sorting)
	c.Queries = make(map[string]Query, len(s.Queries))
	for name, q := range s.Queries {
		q.Arguments = slices.Clone(q.Arguments)
		c.Queries[name] = q
	}
	c.Security.AllowedOperations = slices.Clone(s.Security.AllowedOperations)
	c.Security.ForbiddenKeywords = slices.Clone(s.Security.ForbiddenKeywords)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
