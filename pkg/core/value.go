package core

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// ValueError reports a cell value rejected by a column validator.
type ValueError struct {
	Column  string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value for column '%s': %s", e.Column, e.Message)
}

// ValidateValue checks value against the column's validator.
// Custom validators are resolved by the embedder and always pass here.
func ValidateValue(col Column, value any) error {
	v := col.Validator
	fail := func(format string, args ...any) error {
		msg := v.Message
		if msg == "" {
			msg = fmt.Sprintf(format, args...)
		}
		return &ValueError{Column: col.Name, Message: msg}
	}

	switch v.Kind {
	case ValidateRequired:
		if value == nil || ValueString(value) == "" {
			return fail("value is required")
		}

	case ValidateRange:
		n, ok := toFloat(value)
		if !ok {
			return fail("value must be a number")
		}
		if (v.Min != nil && n < *v.Min) || (v.Max != nil && n > *v.Max) {
			return fail("value must be between %s and %s", boundString(v.Min), boundString(v.Max))
		}

	case ValidateLength:
		l := utf8.RuneCountInString(ValueString(value))
		if l < v.MinLength || (v.MaxLength > 0 && l > v.MaxLength) {
			return fail("length must be between %d and %d characters", v.MinLength, v.MaxLength)
		}

	case ValidateRegexp:
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return fail("invalid pattern: %v", err)
		}
		if !re.MatchString(ValueString(value)) {
			return fail("value does not match the required format")
		}
	}
	return nil
}

// ValueString renders a bound or cell value as text.
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func boundString(p *float64) string {
	if p == nil {
		return "unbounded"
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}
