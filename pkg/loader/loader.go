// Package loader builds a core.ModelSchema from a YAML or JSON model
// definition document.
//
// Both syntaxes are parsed into a generic tree first and then decoded through
// one path, so equivalent documents produce equal schemas. Omitted keys take
// their defaults from internal/config. The loader never checks cross-field
// invariants; that is core.Validate's job.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"gopkg.in/yaml.v3"
)

// Load parses data in the given format and builds a schema.
//
// On success the returned diagnostics hold only warnings (unknown enum
// values). On malformed input Load returns a nil schema, exactly one error
// diagnostic and a *core.ConfigLoadError.
func Load(data []byte, format Format) (*core.ModelSchema, core.Diagnostics, error) {
	return load("", data, format)
}

// LoadFile reads path and loads it, choosing the format from the extension.
func LoadFile(path string) (*core.ModelSchema, core.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(path, fmt.Errorf("read file: %w", err))
	}
	return load(path, data, FormatFromPath(path))
}

func load(source string, data []byte, format Format) (*core.ModelSchema, core.Diagnostics, error) {
	if format == FormatAuto {
		format = DetectFormat(data)
	}

	tree, err := parse(data, format)
	if err != nil {
		return fail(source, err)
	}

	var doc document
	if err := decode(tree, &doc); err != nil {
		return fail(source, err)
	}

	p := &enumParser{}
	schema := convert(&doc, p)
	return schema, p.diags, nil
}

func fail(source string, err error) (*core.ModelSchema, core.Diagnostics, error) {
	loadErr := &core.ConfigLoadError{Source: source, Err: err}
	return nil, core.Diagnostics{core.Errorf(source, "%v", err)}, loadErr
}

// parse turns data into a map tree with normalized scalar types.
func parse(data []byte, format Format) (map[string]any, error) {
	var raw any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if dec.More() {
			return nil, errors.New("parse json: unexpected data after top-level value")
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	if raw == nil {
		return nil, errors.New("document is empty")
	}
	tree, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping, got %T", raw)
	}
	return tree, nil
}

// normalize converts YAML's map[any]any to map[string]any and JSON numbers to
// int or float64, matching what YAML produces for the same literal.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

func decode(tree map[string]any, doc *document) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           doc,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func convert(doc *document, p *enumParser) *core.ModelSchema {
	s := config.NewSchema()

	s.Name = doc.Name
	s.Kind = parseEnum(p, modelKinds, doc.Type, core.ModelTable, "type")
	s.Description = doc.Description
	s.Version = doc.Version
	s.Source = parseEnum(p, sourceKinds, doc.Source, core.SourceQuery, "source")
	s.Editable = boolOr(doc.IsEditable, s.Editable)
	s.ReadOnly = doc.IsReadOnly
	if doc.LoadQuery != nil {
		s.LoadQuery = *doc.LoadQuery
	}
	s.HorizontalHeaders = doc.HorizontalHeaders
	s.CallbackRequired = doc.CallbackIsRequired
	s.DefaultRowTooltip = doc.DefaultRowTooltip
	s.ShowNumeration = boolOr(doc.ShowNumeration, s.ShowNumeration)

	if eh := doc.DefaultErrorHandling; eh != nil {
		s.DefaultErrorPolicy.OnError = parseEnum(p, errorActions, eh.OnError,
			s.DefaultErrorPolicy.OnError, "default_error_handling.on_error")
		if eh.Message != "" {
			s.DefaultErrorPolicy.Message = eh.Message
		}
	}

	for i, cd := range doc.Columns {
		s.Columns = append(s.Columns, convertColumn(cd, i, p))
	}

	if doc.PrimaryKeys != nil {
		s.PrimaryKeys = doc.PrimaryKeys
	} else {
		for _, c := range s.Columns {
			if c.PrimaryKey {
				s.PrimaryKeys = append(s.PrimaryKeys, c.Name)
			}
		}
	}

	for i, sd := range doc.Sorting {
		s.Sorting = append(s.Sorting, core.SortRule{
			Column:   sd.Column,
			Order:    parseEnum(p, sortOrders, sd.Order, core.Ascending, fmt.Sprintf("sorting[%d].order", i)),
			Priority: sd.Priority,
		})
	}

	for _, name := range slices.Sorted(maps.Keys(doc.Queries)) {
		s.Queries[name] = convertQuery(name, doc.Queries[name], s.DefaultErrorPolicy, p)
	}

	if pd := doc.Performance; pd != nil {
		s.Performance.LazyLoading = pd.LazyLoading
		s.Performance.BatchSize = intOr(pd.BatchSize, s.Performance.BatchSize)
		s.Performance.EnableCaching = boolOr(pd.EnableCaching, s.Performance.EnableCaching)
		s.Performance.CacheSize = intOr(pd.CacheSize, s.Performance.CacheSize)
		s.Performance.AsyncOperations = pd.AsyncOperations
		s.Performance.MaxConcurrentQueries = intOr(pd.MaxConcurrentQueries, s.Performance.MaxConcurrentQueries)
	}
	if sd := doc.Security; sd != nil {
		s.Security.SQLInjectionProtection = boolOr(sd.SQLInjectionProtection, s.Security.SQLInjectionProtection)
		s.Security.InputSanitization = boolOr(sd.InputSanitization, s.Security.InputSanitization)
		s.Security.AllowedOperations = sd.AllowedOperations
		s.Security.ForbiddenKeywords = sd.ForbiddenKeywords
	}
	if ld := doc.Localization; ld != nil {
		s.Localization.Locale = stringOr(ld.Locale, s.Localization.Locale)
		s.Localization.DateFormat = stringOr(ld.DateFormat, s.Localization.DateFormat)
		s.Localization.TimeFormat = stringOr(ld.TimeFormat, s.Localization.TimeFormat)
		s.Localization.DateTimeFormat = stringOr(ld.DateTimeFormat, s.Localization.DateTimeFormat)
	}

	return s
}

func convertColumn(cd columnDoc, i int, p *enumParser) core.Column {
	path := fmt.Sprintf("columns[%d]", i)
	c := config.NewColumn(cd.Name)
	c.Type = parseEnum(p, columnTypes, cd.Type, core.TypeString, path+".type")
	c.DisplayName = cd.DisplayName
	c.Tooltip = cd.Tooltip
	c.Alignment = parseEnum(p, alignments, cd.Alignment, core.AlignLeft, path+".alignment")
	c.Visible = boolOr(cd.IsVisible, c.Visible)
	c.Editable = boolOr(cd.IsEditable, c.Editable)
	c.PrimaryKey = cd.IsPrimaryKey
	c.Unique = cd.IsUnique
	c.Indexed = cd.IsIndexed
	c.Calculated = cd.IsCalculated
	c.Expression = cd.Expression
	c.DependsOn = cd.DependsOn
	c.ReferenceTable = cd.ReferenceTable
	c.ReferenceColumn = cd.ReferenceColumn

	if vd := cd.Validator; vd != nil {
		c.Validator = core.Validator{
			Kind:       parseEnum(p, validatorKinds, vd.Type, core.ValidateNone, path+".validator.type"),
			Pattern:    vd.Pattern,
			Min:        vd.Min,
			Max:        vd.Max,
			MinLength:  vd.MinLength,
			MaxLength:  vd.MaxLength,
			CustomName: vd.Name,
			Message:    vd.Message,
		}
	}
	return c
}

// convertQuery builds a query; an omitted on_error or message inherits the
// schema's default error policy.
func convertQuery(name string, qd queryDoc, def core.ErrorPolicy, p *enumParser) core.Query {
	path := "queries." + name
	q := config.NewQuery(name, qd.SQL)
	q.OnError = parseEnum(p, errorActions, qd.OnError, def.OnError, path+".on_error")
	q.Message = stringOr(qd.Message, def.Message)
	q.Description = qd.Description
	if qd.TimeoutMS != nil {
		q.Timeout = time.Duration(*qd.TimeoutMS) * time.Millisecond
	}
	q.Transactional = qd.IsTransactional
	q.ReadOnly = boolOr(qd.IsReadOnly, q.ReadOnly)

	for i, ad := range qd.Arguments {
		q.Arguments = append(q.Arguments, core.QueryArgument{
			Name:        ad.Name,
			Type:        parseEnum(p, columnTypes, ad.Type, core.TypeString, fmt.Sprintf("%s.arguments[%d].type", path, i)),
			Optional:    ad.IsOptional,
			Default:     ad.Default,
			Description: ad.Description,
		})
	}
	return q
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
