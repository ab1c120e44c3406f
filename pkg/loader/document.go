package loader

// document mirrors the configuration document. Pointer fields distinguish
// an omitted key from an explicit zero so defaults apply only when omitted.
// The same types are encoded by Marshal.
type document struct {
	Name              string              `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Type              string              `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Description       string              `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Version           string              `mapstructure:"version" json:"version,omitempty" yaml:"version,omitempty"`
	Source            string              `mapstructure:"source" json:"source,omitempty" yaml:"source,omitempty"`
	IsEditable        *bool               `mapstructure:"is_editable" json:"is_editable,omitempty" yaml:"is_editable,omitempty"`
	IsReadOnly        bool                `mapstructure:"is_read_only" json:"is_read_only,omitempty" yaml:"is_read_only,omitempty"`
	LoadQuery         *string             `mapstructure:"load_query" json:"load_query,omitempty" yaml:"load_query,omitempty"`
	HorizontalHeaders []string            `mapstructure:"horizontal_headers" json:"horizontal_headers,omitempty" yaml:"horizontal_headers,omitempty"`
	PrimaryKeys       []string            `mapstructure:"primary_keys" json:"primary_keys,omitempty" yaml:"primary_keys,omitempty"`
	Columns           []columnDoc         `mapstructure:"columns" json:"columns,omitempty" yaml:"columns,omitempty"`
	Sorting           []sortDoc           `mapstructure:"sorting" json:"sorting,omitempty" yaml:"sorting,omitempty"`
	Queries           map[string]queryDoc `mapstructure:"queries" json:"queries,omitempty" yaml:"queries,omitempty"`

	DefaultErrorHandling *errorPolicyDoc `mapstructure:"default_error_handling" json:"default_error_handling,omitempty" yaml:"default_error_handling,omitempty"`
	CallbackIsRequired   bool            `mapstructure:"callback_is_required" json:"callback_is_required,omitempty" yaml:"callback_is_required,omitempty"`
	DefaultRowTooltip    string          `mapstructure:"default_row_tooltip" json:"default_row_tooltip,omitempty" yaml:"default_row_tooltip,omitempty"`
	ShowNumeration       *bool           `mapstructure:"show_numeration" json:"show_numeration,omitempty" yaml:"show_numeration,omitempty"`

	Performance  *performanceDoc  `mapstructure:"performance" json:"performance,omitempty" yaml:"performance,omitempty"`
	Security     *securityDoc     `mapstructure:"security" json:"security,omitempty" yaml:"security,omitempty"`
	Localization *localizationDoc `mapstructure:"localization" json:"localization,omitempty" yaml:"localization,omitempty"`
}

type columnDoc struct {
	Name            string        `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Type            string        `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	DisplayName     string        `mapstructure:"display_name" json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Tooltip         string        `mapstructure:"tooltip" json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Alignment       string        `mapstructure:"alignment" json:"alignment,omitempty" yaml:"alignment,omitempty"`
	IsVisible       *bool         `mapstructure:"is_visible" json:"is_visible,omitempty" yaml:"is_visible,omitempty"`
	IsEditable      *bool         `mapstructure:"is_editable" json:"is_editable,omitempty" yaml:"is_editable,omitempty"`
	IsPrimaryKey    bool          `mapstructure:"is_primary_key" json:"is_primary_key,omitempty" yaml:"is_primary_key,omitempty"`
	IsUnique        bool          `mapstructure:"is_unique" json:"is_unique,omitempty" yaml:"is_unique,omitempty"`
	IsIndexed       bool          `mapstructure:"is_indexed" json:"is_indexed,omitempty" yaml:"is_indexed,omitempty"`
	Validator       *validatorDoc `mapstructure:"validator" json:"validator,omitempty" yaml:"validator,omitempty"`
	IsCalculated    bool          `mapstructure:"is_calculated" json:"is_calculated,omitempty" yaml:"is_calculated,omitempty"`
	Expression      string        `mapstructure:"expression" json:"expression,omitempty" yaml:"expression,omitempty"`
	DependsOn       []string      `mapstructure:"depends_on" json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ReferenceTable  string        `mapstructure:"reference_table" json:"reference_table,omitempty" yaml:"reference_table,omitempty"`
	ReferenceColumn string        `mapstructure:"reference_column" json:"reference_column,omitempty" yaml:"reference_column,omitempty"`
}

type validatorDoc struct {
	Type      string   `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Pattern   string   `mapstructure:"pattern" json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *float64 `mapstructure:"min" json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `mapstructure:"max" json:"max,omitempty" yaml:"max,omitempty"`
	MinLength int      `mapstructure:"min_length" json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int      `mapstructure:"max_length" json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Name      string   `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Message   string   `mapstructure:"message" json:"message,omitempty" yaml:"message,omitempty"`
}

type sortDoc struct {
	Column   string `mapstructure:"column" json:"column,omitempty" yaml:"column,omitempty"`
	Order    string `mapstructure:"order" json:"order,omitempty" yaml:"order,omitempty"`
	Priority int    `mapstructure:"priority" json:"priority,omitempty" yaml:"priority,omitempty"`
}

type queryDoc struct {
	SQL             string        `mapstructure:"sql" json:"sql,omitempty" yaml:"sql,omitempty"`
	Arguments       []argumentDoc `mapstructure:"arguments" json:"arguments,omitempty" yaml:"arguments,omitempty"`
	OnError         string        `mapstructure:"on_error" json:"on_error,omitempty" yaml:"on_error,omitempty"`
	Message         string        `mapstructure:"message" json:"message,omitempty" yaml:"message,omitempty"`
	Description     string        `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	TimeoutMS       *int          `mapstructure:"timeout_ms" json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	IsTransactional bool          `mapstructure:"is_transactional" json:"is_transactional,omitempty" yaml:"is_transactional,omitempty"`
	IsReadOnly      *bool         `mapstructure:"is_read_only" json:"is_read_only,omitempty" yaml:"is_read_only,omitempty"`
}

type argumentDoc struct {
	Name        string `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Type        string `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	IsOptional  bool   `mapstructure:"is_optional" json:"is_optional,omitempty" yaml:"is_optional,omitempty"`
	Default     any    `mapstructure:"default" json:"default,omitempty" yaml:"default,omitempty"`
	Description string `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
}

type errorPolicyDoc struct {
	OnError string `mapstructure:"on_error" json:"on_error,omitempty" yaml:"on_error,omitempty"`
	Message string `mapstructure:"message" json:"message,omitempty" yaml:"message,omitempty"`
}

type performanceDoc struct {
	LazyLoading          bool  `mapstructure:"lazy_loading" json:"lazy_loading,omitempty" yaml:"lazy_loading,omitempty"`
	BatchSize            *int  `mapstructure:"batch_size" json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	EnableCaching        *bool `mapstructure:"enable_caching" json:"enable_caching,omitempty" yaml:"enable_caching,omitempty"`
	CacheSize            *int  `mapstructure:"cache_size" json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	AsyncOperations      bool  `mapstructure:"async_operations" json:"async_operations,omitempty" yaml:"async_operations,omitempty"`
	MaxConcurrentQueries *int  `mapstructure:"max_concurrent_queries" json:"max_concurrent_queries,omitempty" yaml:"max_concurrent_queries,omitempty"`
}

type securityDoc struct {
	SQLInjectionProtection *bool    `mapstructure:"sql_injection_protection" json:"sql_injection_protection,omitempty" yaml:"sql_injection_protection,omitempty"`
	InputSanitization      *bool    `mapstructure:"input_sanitization" json:"input_sanitization,omitempty" yaml:"input_sanitization,omitempty"`
	AllowedOperations      []string `mapstructure:"allowed_operations" json:"allowed_operations,omitempty" yaml:"allowed_operations,omitempty"`
	ForbiddenKeywords      []string `mapstructure:"forbidden_keywords" json:"forbidden_keywords,omitempty" yaml:"forbidden_keywords,omitempty"`
}

type localizationDoc struct {
	Locale         string `mapstructure:"locale" json:"locale,omitempty" yaml:"locale,omitempty"`
	DateFormat     string `mapstructure:"date_format" json:"date_format,omitempty" yaml:"date_format,omitempty"`
	TimeFormat     string `mapstructure:"time_format" json:"time_format,omitempty" yaml:"time_format,omitempty"`
	DateTimeFormat string `mapstructure:"datetime_format" json:"datetime_format,omitempty" yaml:"datetime_format,omitempty"`
}
