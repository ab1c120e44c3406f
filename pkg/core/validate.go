package core

import (
	"fmt"
	"regexp"
	"slices"
)

// Validate checks the cross-referential invariants of a schema and returns
// every violation found. An empty report means the schema is valid.
//
// Validate is pure: it never mutates s and never stops at the first problem.
// Queries are visited in sorted name order so the report is deterministic.
func Validate(s *ModelSchema) Diagnostics {
	if s == nil {
		return Diagnostics{Errorf("", "schema is nil")}
	}

	var ds Diagnostics
	ds = append(ds, checkBasics(s)...)
	ds = append(ds, checkColumnNames(s)...)
	ds = append(ds, checkPrimaryKeys(s)...)
	ds = append(ds, checkHeaders(s)...)
	ds = append(ds, checkLoadQuery(s)...)
	ds = append(ds, checkSorting(s)...)
	ds = append(ds, checkQueries(s)...)
	ds = append(ds, checkReferences(s)...)
	ds = append(ds, checkCalculated(s)...)
	ds = append(ds, checkValidators(s)...)
	return ds
}

func checkBasics(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	if s.Name == "" {
		ds = append(ds, Errorf("name", "model name is required"))
	}
	if len(s.Columns) == 0 {
		ds = append(ds, Errorf("columns", "at least one column must be defined"))
	}
	return ds
}

func checkColumnNames(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	seen := make(map[string]bool, len(s.Columns))
	for i, c := range s.Columns {
		path := fmt.Sprintf("columns[%d].name", i)
		switch {
		case c.Name == "":
			ds = append(ds, Errorf(path, "column with empty name found"))
		case seen[c.Name]:
			ds = append(ds, Errorf(path, "duplicate column name '%s'", c.Name))
		default:
			seen[c.Name] = true
		}
	}
	return ds
}

func checkPrimaryKeys(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for i, pk := range s.PrimaryKeys {
		path := fmt.Sprintf("primary_keys[%d]", i)
		col, ok := s.FindColumn(pk)
		if !ok {
			ds = append(ds, Errorf(path, "primary key column '%s' not found in columns", pk))
			continue
		}
		if !col.PrimaryKey {
			ds = append(ds, Errorf(path, "column '%s' is listed as primary key but is_primary_key is false", pk))
		}
	}
	for i, c := range s.Columns {
		if c.PrimaryKey && !slices.Contains(s.PrimaryKeys, c.Name) {
			ds = append(ds, Errorf(fmt.Sprintf("columns[%d].is_primary_key", i),
				"column '%s' is marked as primary key but not in the primary key list", c.Name))
		}
	}
	return ds
}

func checkHeaders(s *ModelSchema) Diagnostics {
	if len(s.HorizontalHeaders) == 0 {
		return nil
	}
	visible := len(s.VisibleColumns())
	if len(s.HorizontalHeaders) != visible {
		return Diagnostics{Errorf("horizontal_headers",
			"horizontal headers count (%d) doesn't match visible columns count (%d)",
			len(s.HorizontalHeaders), visible)}
	}
	return nil
}

func checkLoadQuery(s *ModelSchema) Diagnostics {
	if s.Source != SourceQuery {
		return nil
	}
	if s.LoadQuery == "" {
		return Diagnostics{Errorf("load_query", "load query is required when data source is query")}
	}
	if _, ok := s.Queries[s.LoadQuery]; !ok {
		return Diagnostics{Errorf("load_query", "load query '%s' not found in queries", s.LoadQuery)}
	}
	return nil
}

func checkSorting(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for i, rule := range s.Sorting {
		if _, ok := s.FindColumn(rule.Column); !ok {
			ds = append(ds, Errorf(fmt.Sprintf("sorting[%d].column", i),
				"sort column '%s' not found in columns", rule.Column))
		}
	}
	return ds
}

func checkQueries(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for _, name := range s.QueryNames() {
		q := s.Queries[name]
		path := "queries." + name
		if q.SQL == "" {
			ds = append(ds, Errorf(path+".sql", "query '%s' has empty SQL", name))
		}
		seen := make(map[string]bool, len(q.Arguments))
		for i, arg := range q.Arguments {
			argPath := fmt.Sprintf("%s.arguments[%d]", path, i)
			switch {
			case arg.Name == "":
				ds = append(ds, Errorf(argPath, "query '%s' has argument with empty name", name))
			case seen[arg.Name]:
				ds = append(ds, Errorf(argPath, "query '%s' has duplicate argument name '%s'", name, arg.Name))
			default:
				seen[arg.Name] = true
			}
		}
	}
	return ds
}

func checkReferences(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for i, c := range s.Columns {
		if c.ReferenceTable != "" && c.ReferenceColumn == "" {
			ds = append(ds, Errorf(fmt.Sprintf("columns[%d].reference_column", i),
				"column '%s' has reference table but no reference column", c.Name))
		}
	}
	return ds
}

func checkCalculated(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for i, c := range s.Columns {
		if !c.Calculated {
			continue
		}
		path := fmt.Sprintf("columns[%d]", i)
		if c.Expression == "" {
			ds = append(ds, Errorf(path+".expression",
				"calculated column '%s' has empty calculation expression", c.Name))
		}
		for _, dep := range c.DependsOn {
			if _, ok := s.FindColumn(dep); !ok {
				ds = append(ds, Errorf(path+".depends_on",
					"calculated column '%s' depends on non-existent column '%s'", c.Name, dep))
			}
		}
	}
	return ds
}

func checkValidators(s *ModelSchema) Diagnostics {
	var ds Diagnostics
	for i, c := range s.Columns {
		v := c.Validator
		path := fmt.Sprintf("columns[%d].validator", i)
		switch v.Kind {
		case ValidateRegexp:
			if _, err := regexp.Compile(v.Pattern); err != nil {
				ds = append(ds, Errorf(path+".pattern", "column '%s' has invalid pattern: %v", c.Name, err))
			}
		case ValidateRange:
			if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
				ds = append(ds, Errorf(path, "column '%s' has range min greater than max", c.Name))
			}
		case ValidateLength:
			if v.MaxLength > 0 && v.MinLength > v.MaxLength {
				ds = append(ds, Errorf(path, "column '%s' has min_length greater than max_length", c.Name))
			}
		}
	}
	return ds
}
