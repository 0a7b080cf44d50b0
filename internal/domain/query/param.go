package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cinedex-io/cinedex/internal/domain"
)

// ParamType enumerates parameter value types.
type ParamType int

const (
	// ParamString is a text parameter.
	ParamString ParamType = iota
	// ParamInt is a whole-number parameter.
	ParamInt
	// ParamFloat is a numeric parameter.
	ParamFloat
)

// ParamSpec declares one query parameter and its constraints.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	// Default is applied when an optional parameter is absent. Ignored for
	// required parameters.
	Default any
	// Min and Max bound numeric parameters inclusively.
	Min *float64
	// Max is the inclusive upper bound.
	Max *float64
	// Enum restricts string parameters to a fixed value set.
	Enum []string
}

// ValidateParams checks params against the definition's specs, applies
// defaults, and returns the effective parameter map. It fails fast with an
// InvalidParametersError before any store I/O: unknown names, missing
// required values, wrong types, and out-of-range values are all rejected.
func (d Definition) ValidateParams(params map[string]any) (map[string]any, error) {
	specs := make(map[string]ParamSpec, len(d.params))
	for _, s := range d.params {
		specs[s.Name] = s
	}

	for name := range params {
		if _, ok := specs[name]; !ok {
			return nil, domain.NewInvalidParameters(name, "unknown parameter")
		}
	}

	out := make(map[string]any, len(d.params))
	for _, s := range d.params {
		raw, present := params[s.Name]
		if !present || raw == nil {
			if s.Required {
				return nil, domain.NewInvalidParameters(s.Name, "required parameter missing")
			}
			if s.Default != nil {
				out[s.Name] = s.Default
			}
			continue
		}
		v, err := coerceParam(s, raw)
		if err != nil {
			return nil, err
		}
		out[s.Name] = v
	}
	return out, nil
}

func coerceParam(s ParamSpec, raw any) (any, error) {
	switch s.Type {
	case ParamString:
		str, ok := raw.(string)
		if !ok {
			return nil, domain.NewInvalidParameters(s.Name, "expected string")
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return nil, domain.NewInvalidParameters(s.Name,
				fmt.Sprintf("value %q not in allowed set", str))
		}
		return str, nil

	case ParamInt:
		n, ok := toFloat(raw)
		if !ok || n != math.Trunc(n) {
			return nil, domain.NewInvalidParameters(s.Name, "expected integer")
		}
		if err := checkRange(s, n); err != nil {
			return nil, err
		}
		return int(n), nil

	case ParamFloat:
		n, ok := toFloat(raw)
		if !ok {
			return nil, domain.NewInvalidParameters(s.Name, "expected number")
		}
		if err := checkRange(s, n); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, domain.NewInvalidParameters(s.Name, "unsupported parameter type")
}

func checkRange(s ParamSpec, n float64) error {
	if s.Min != nil && n < *s.Min {
		return domain.NewInvalidParameters(s.Name,
			fmt.Sprintf("value %v below minimum %v", n, *s.Min))
	}
	if s.Max != nil && n > *s.Max {
		return domain.NewInvalidParameters(s.Name,
			fmt.Sprintf("value %v above maximum %v", n, *s.Max))
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// CanonicalParams renders an effective parameter map as a stable string
// for cache keying: sorted name=value pairs joined by '&'.
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(canonicalValue(params[name]))
	}
	return b.String()
}

func canonicalValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int:
		return strconv.Itoa(n)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Float64Ptr returns a pointer to f, for ParamSpec bounds.
func Float64Ptr(f float64) *float64 { return &f }
