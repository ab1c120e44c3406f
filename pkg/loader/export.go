package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"gopkg.in/yaml.v3"
)

// Marshal encodes s as a configuration document that Load reads back into
// an equal schema. FormatAuto selects JSON.
func Marshal(s *core.ModelSchema, format Format) ([]byte, error) {
	if s == nil {
		return nil, errors.New("marshal: nil schema")
	}
	doc := fromSchema(s)

	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return out, nil
	}
}

func fromSchema(s *core.ModelSchema) *document {
	doc := &document{
		Name:               s.Name,
		Type:               s.Kind.String(),
		Description:        s.Description,
		Version:            s.Version,
		Source:             s.Source.String(),
		IsEditable:         &s.Editable,
		IsReadOnly:         s.ReadOnly,
		LoadQuery:          &s.LoadQuery,
		HorizontalHeaders:  s.HorizontalHeaders,
		PrimaryKeys:        s.PrimaryKeys,
		CallbackIsRequired: s.CallbackRequired,
		DefaultRowTooltip:  s.DefaultRowTooltip,
		ShowNumeration:     &s.ShowNumeration,
		DefaultErrorHandling: &errorPolicyDoc{
			OnError: s.DefaultErrorPolicy.OnError.String(),
			Message: s.DefaultErrorPolicy.Message,
		},
		Performance: &performanceDoc{
			LazyLoading:          s.Performance.LazyLoading,
			BatchSize:            &s.Performance.BatchSize,
			EnableCaching:        &s.Performance.EnableCaching,
			CacheSize:            &s.Performance.CacheSize,
			AsyncOperations:      s.Performance.AsyncOperations,
			MaxConcurrentQueries: &s.Performance.MaxConcurrentQueries,
		},
		Security: &securityDoc{
			SQLInjectionProtection: &s.Security.SQLInjectionProtection,
			InputSanitization:      &s.Security.InputSanitization,
			AllowedOperations:      s.Security.AllowedOperations,
			ForbiddenKeywords:      s.Security.ForbiddenKeywords,
		},
		Localization: &localizationDoc{
			Locale:         s.Localization.Locale,
			DateFormat:     s.Localization.DateFormat,
			TimeFormat:     s.Localization.TimeFormat,
			DateTimeFormat: s.Localization.DateTimeFormat,
		},
	}

	for _, c := range s.Columns {
		cd := columnDoc{
			Name:            c.Name,
			Type:            c.Type.String(),
			DisplayName:     c.DisplayName,
			Tooltip:         c.Tooltip,
			Alignment:       c.Alignment.String(),
			IsVisible:       &c.Visible,
			IsEditable:      &c.Editable,
			IsPrimaryKey:    c.PrimaryKey,
			IsUnique:        c.Unique,
			IsIndexed:       c.Indexed,
			IsCalculated:    c.Calculated,
			Expression:      c.Expression,
			DependsOn:       c.DependsOn,
			ReferenceTable:  c.ReferenceTable,
			ReferenceColumn: c.ReferenceColumn,
		}
		if v := c.Validator; v != (core.Validator{}) {
			cd.Validator = &validatorDoc{
				Type:      v.Kind.String(),
				Pattern:   v.Pattern,
				Min:       v.Min,
				Max:       v.Max,
				MinLength: v.MinLength,
				MaxLength: v.MaxLength,
				Name:      v.CustomName,
				Message:   v.Message,
			}
		}
		doc.Columns = append(doc.Columns, cd)
	}

	for _, r := range s.Sorting {
		doc.Sorting = append(doc.Sorting, sortDoc{Column: r.Column, Order: r.Order.String(), Priority: r.Priority})
	}

	if len(s.Queries) > 0 {
		doc.Queries = make(map[string]queryDoc, len(s.Queries))
	}
	for name, q := range s.Queries {
		timeout := int(q.Timeout / time.Millisecond)
		readOnly := q.ReadOnly
		qd := queryDoc{
			SQL:             q.SQL,
			OnError:         q.OnError.String(),
			Message:         q.Message,
			Description:     q.Description,
			TimeoutMS:       &timeout,
			IsTransactional: q.Transactional,
			IsReadOnly:      &readOnly,
		}
		for _, a := range q.Arguments {
			qd.Arguments = append(qd.Arguments, argumentDoc{
				Name:        a.Name,
				Type:        a.Type.String(),
				IsOptional:  a.Optional,
				Default:     a.Default,
				Description: a.Description,
			})
		}
		doc.Queries[name] = qd
	}
	return doc
}
