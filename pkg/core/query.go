package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Params are the caller supplied query parameters.
type Params map[string]any

// Binding is one named value bound to a query placeholder.
type Binding struct {
	Name  string
	Value any
}

// QueryContext is the resolved request handed to a Handler.
// One is created per invocation and discarded afterwards.
type QueryContext struct {
	QueryName string
	// SQL is the literal template text, placeholders not yet substituted.
	SQL string
	// Bindings are ordered by the query's argument declaration, followed by
	// undeclared extras in name order.
	Bindings []Binding
}

// Lookup returns the bound value for name.
func (qc QueryContext) Lookup(name string) (any, bool) {
	for _, b := range qc.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// BindingMap returns the bindings as an unordered map.
func (qc QueryContext) BindingMap() map[string]any {
	m := make(map[string]any, len(qc.Bindings))
	for _, b := range qc.Bindings {
		m[b.Name] = b.Value
	}
	return m
}

// Field is one column value within a Row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered mapping of column name to value.
// The zero value is an empty row ready to use.
type Row struct {
	fields []Field
}

// NewRow builds a row from fields; later duplicates overwrite earlier ones.
func NewRow(fields ...Field) Row {
	var r Row
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns value to name, keeping the original position of an existing name.
func (r *Row) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Len returns the number of fields.
func (r Row) Len() int { return len(r.fields) }

// Names returns the column names in order.
func (r Row) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the ordered fields.
func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.fields = r.fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		r.Set(name, v)
	}
	_, err := dec.Token()
	return err
}

// QueryResult is the outcome of one query execution.
type QueryResult struct {
	OK     bool     `json:"ok"`
	Rows   []Row    `json:"rows"`
	Errors []string `json:"errors"`

	// Err keeps the typed cause of a failure for errors.As; it is not serialized.
	Err error `json:"-"`
}

// Success builds a successful result.
func Success(rows ...Row) QueryResult {
	return QueryResult{OK: true, Rows: rows}
}

// Failure builds a failed result carrying err's message.
func Failure(err error) QueryResult {
	r := QueryResult{Err: err}
	if err != nil {
		r.Errors = []string{err.Error()}
	}
	return r
}

// Log appends an error message to the result.
func (r *QueryResult) Log(msg string) {
	r.Errors = append(r.Errors, msg)
}

// ErrorText joins all error messages with "; ".
func (r QueryResult) ErrorText() string {
	return strings.Join(r.Errors, "; ")
}
