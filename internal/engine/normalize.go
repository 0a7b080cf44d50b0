package engine

import (
	"time"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query"
)

// normalize shapes raw documents into typed records per the definition's
// field specs and degradation policy. Malformed values (wrong type,
// out-of-range number) are treated as missing. Every returned record
// carries exactly the declared field set; the second return value counts
// records dropped by the policy.
func normalize(def query.Definition, raw []map[string]any) ([]domain.Record, int) {
	records := make([]domain.Record, 0, len(raw))
	var dropped int

	for _, doc := range raw {
		rec := make(domain.Record, len(def.Fields()))
		keep := true
		for _, f := range def.Fields() {
			val, ok := coerceValue(doc[f.Name], f)
			if ok {
				rec[f.Name] = val
				continue
			}
			switch f.OnMissing {
			case query.DropRecord:
				keep = false
			case query.NullValue:
				rec[f.Name] = domain.Null()
			case query.Substitute:
				rec[f.Name] = f.Default
			}
			if !keep {
				break
			}
		}
		if keep {
			records = append(records, rec)
		} else {
			dropped++
		}
	}
	return records, dropped
}

// coerceValue converts one raw value to the declared field type.
func coerceValue(v any, f query.FieldSpec) (domain.Value, bool) {
	if v == nil {
		return domain.Value{}, false
	}
	switch f.Type {
	case domain.KindString:
		s, ok := v.(string)
		if !ok {
			return domain.Value{}, false
		}
		return domain.String(s), true

	case domain.KindNumber:
		n, ok := rawFloat(v)
		if !ok || !inBounds(n, f) {
			return domain.Value{}, false
		}
		return domain.Number(n), true

	case domain.KindDate:
		t, ok := rawTime(v)
		if !ok {
			return domain.Value{}, false
		}
		return domain.Date(t), true

	case domain.KindGeo:
		pair, ok := v.([]any)
		if !ok || len(pair) < 2 {
			return domain.Value{}, false
		}
		lon, lonOK := rawFloat(pair[0])
		lat, latOK := rawFloat(pair[1])
		if !lonOK || !latOK || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return domain.Value{}, false
		}
		return domain.Geo(lon, lat), true

	case domain.KindStringList:
		switch list := v.(type) {
		case []string:
			return domain.StringList(list), true
		case []any:
			ss := make([]string, 0, len(list))
			for _, elem := range list {
				s, ok := elem.(string)
				if !ok {
					return domain.Value{}, false
				}
				ss = append(ss, s)
			}
			return domain.StringList(ss), true
		}
		return domain.Value{}, false
	}
	return domain.Value{}, false
}

func inBounds(n float64, f query.FieldSpec) bool {
	if f.Min != nil && n < *f.Min {
		return false
	}
	if f.Max != nil && n > *f.Max {
		return false
	}
	return true
}

func rawFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func rawTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
