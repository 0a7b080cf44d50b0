package adapter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
)

// evaluate runs a bound pipeline over the documents of the primary
// collection. load fetches lookup collections on demand.
func evaluate(
	docs []map[string]any,
	p pipeline.Pipeline,
	load func(collection string) ([]map[string]any, error),
) ([]map[string]any, error) {
	cur := docs
	for _, st := range p.Stages() {
		var err error
		switch {
		case st.Match != nil:
			cur = matchStage(cur, st.Match)
		case st.Unwind != "":
			cur = unwindStage(cur, st.Unwind)
		case st.Group != nil:
			cur = groupStage(cur, st.Group)
		case st.Project != nil:
			cur = projectStage(cur, st.Project)
		case st.Sort != nil:
			sortStage(cur, st.Sort)
		case st.Limit != nil:
			cur, err = limitStage(cur, *st.Limit)
		case st.Lookup != nil:
			cur, err = lookupStage(cur, st.Lookup, load)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func matchStage(docs []map[string]any, conds []pipeline.Condition) []map[string]any {
	out := docs[:0:0]
	for _, doc := range docs {
		if matchDoc(doc, conds) {
			out = append(out, doc)
		}
	}
	return out
}

// matchDoc reports whether a document satisfies every condition.
func matchDoc(doc map[string]any, conds []pipeline.Condition) bool {
	for _, c := range conds {
		if !matchCond(doc, c) {
			return false
		}
	}
	return true
}

func matchCond(doc map[string]any, c pipeline.Condition) bool {
	v := resolvePath(doc, c.Path)
	switch c.Op {
	case pipeline.OpExists:
		return v != nil
	case pipeline.OpNotEmpty:
		return notEmpty(v)
	case pipeline.OpEq:
		return v != nil && equalAny(v, c.Operand.Value())
	case pipeline.OpNe:
		return v == nil || !equalAny(v, c.Operand.Value())
	case pipeline.OpGte:
		n, ok := toNum(v)
		bound, bok := toNum(c.Operand.Value())
		return ok && bok && n >= bound
	case pipeline.OpLte:
		n, ok := toNum(v)
		bound, bok := toNum(c.Operand.Value())
		return ok && bok && n <= bound
	case pipeline.OpSubstr:
		sub, sok := c.Operand.Value().(string)
		if sok && sub == "" {
			return true
		}
		s, ok := v.(string)
		return ok && sok && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	case pipeline.OpHas:
		want, sok := c.Operand.Value().(string)
		if sok && want == "" {
			return true
		}
		switch t := v.(type) {
		case string:
			return sok && t == want
		case []any:
			for _, elem := range t {
				if s, ok := elem.(string); ok && sok && s == want {
					return true
				}
			}
		}
		return false
	}
	return false
}

// unwindStage emits one document per element of a list-valued path, with
// the path replaced by the element. Documents where the path is missing,
// null, or empty produce nothing.
func unwindStage(docs []map[string]any, path string) []map[string]any {
	var out []map[string]any
	for _, doc := range docs {
		list, ok := resolvePath(doc, path).([]any)
		if !ok {
			continue
		}
		for _, elem := range list {
			out = append(out, setPath(doc, path, elem))
		}
	}
	return out
}

type groupBucket struct {
	key    any
	n      int64
	sums   map[string]float64
	counts map[string]int64
}

// groupStage buckets documents by the group key and computes accumulators.
// A nil key folds everything into one bucket. Sum and avg skip documents
// where the source path is missing or non-numeric, so averages exclude
// nulls from both numerator and denominator. Empty input emits no rows.
func groupStage(docs []map[string]any, g *pipeline.GroupStage) []map[string]any {
	var order []string
	buckets := make(map[string]*groupBucket)

	for _, doc := range docs {
		key, ok := groupKeyOf(doc, g.Key)
		if !ok {
			continue
		}
		ck := keyString(key)
		b, exists := buckets[ck]
		if !exists {
			b = &groupBucket{
				key:    key,
				sums:   make(map[string]float64),
				counts: make(map[string]int64),
			}
			buckets[ck] = b
			order = append(order, ck)
		}
		b.n++
		for _, acc := range g.Accs {
			if acc.Kind == pipeline.AccCount {
				continue
			}
			if v, ok := toNum(resolvePath(doc, acc.Path)); ok {
				b.sums[acc.As] += v
				b.counts[acc.As]++
			}
		}
	}

	out := make([]map[string]any, 0, len(order))
	for _, ck := range order {
		b := buckets[ck]
		doc := make(map[string]any, len(g.Accs)+1)
		if g.Key != nil {
			doc[g.Key.As] = b.key
		}
		for _, acc := range g.Accs {
			switch acc.Kind {
			case pipeline.AccCount:
				doc[acc.As] = float64(b.n)
			case pipeline.AccSum:
				doc[acc.As] = b.sums[acc.As]
			case pipeline.AccAvg:
				if b.counts[acc.As] > 0 {
					doc[acc.As] = b.sums[acc.As] / float64(b.counts[acc.As])
				} else {
					doc[acc.As] = nil
				}
			case pipeline.AccCountNumeric:
				doc[acc.As] = float64(b.counts[acc.As])
			}
		}
		out = append(out, doc)
	}
	return out
}

// groupKeyOf derives the bucket key for one document. Documents whose key
// path cannot be interpreted (missing field, non-numeric year, unparsable
// date) are excluded from grouping rather than crashing the query.
func groupKeyOf(doc map[string]any, key *pipeline.GroupKey) (any, bool) {
	if key == nil {
		return nil, true
	}
	v := resolvePath(doc, key.Path)
	switch key.Kind {
	case pipeline.GroupByField:
		if v == nil {
			return nil, false
		}
		return v, true
	case pipeline.GroupByDecade:
		n, ok := toNum(v)
		if !ok {
			return nil, false
		}
		year := int(n)
		return float64(year - year%10), true
	case pipeline.GroupByYearMonth:
		t, ok := toTime(v)
		if !ok {
			return nil, false
		}
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	return nil, false
}

func projectStage(docs []map[string]any, fields []pipeline.Projection) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		proj := make(map[string]any, len(fields))
		for _, f := range fields {
			proj[f.Name] = resolvePath(doc, f.Path)
		}
		out[i] = proj
	}
	return out
}

func sortStage(docs []map[string]any, keys []pipeline.SortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			c := compareAny(docs[i][k.Field], docs[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func limitStage(docs []map[string]any, op pipeline.Operand) ([]map[string]any, error) {
	if op.IsParam() {
		return nil, fmt.Errorf("limit: unbound parameter %q", op.Param())
	}
	n, ok := toNum(op.Value())
	if !ok || n < 0 {
		return nil, fmt.Errorf("limit: invalid value %v", op.Value())
	}
	if int(n) < len(docs) {
		return docs[:int(n)], nil
	}
	return docs, nil
}

// lookupStage left-joins foreign documents by key equality. The first
// match is embedded; unmatched documents keep a nil field.
func lookupStage(
	docs []map[string]any,
	lk *pipeline.LookupStage,
	load func(string) ([]map[string]any, error),
) ([]map[string]any, error) {
	foreign, err := load(lk.From)
	if err != nil {
		return nil, err
	}

	index := make(map[string]map[string]any, len(foreign))
	for _, fd := range foreign {
		fv := resolvePath(fd, lk.ForeignField)
		if fv == nil {
			continue
		}
		ck := keyString(fv)
		if _, dup := index[ck]; !dup {
			index[ck] = fd
		}
	}

	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		joined := setPath(doc, lk.As, nil)
		if lv := resolvePath(doc, lk.LocalField); lv != nil {
			if fd, ok := index[keyString(lv)]; ok {
				joined[lk.As] = fd
			}
		}
		out[i] = joined
	}
	return out, nil
}

// --- value helpers ---

// resolvePath walks a dotted path through nested maps. Missing segments
// resolve to nil.
func resolvePath(doc map[string]any, path string) any {
	var cur any = doc
	for {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		head, rest, more := strings.Cut(path, ".")
		cur, ok = m[head]
		if !ok {
			return nil
		}
		if !more {
			return cur
		}
		path = rest
	}
}

// setPath returns a copy of doc with the value at a dotted path replaced.
// Maps along the path are shallow-copied; the original is never mutated.
func setPath(doc map[string]any, path string, v any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, val := range doc {
		out[k] = val
	}
	head, rest, more := strings.Cut(path, ".")
	if !more {
		out[head] = v
		return out
	}
	if nested, ok := out[head].(map[string]any); ok {
		out[head] = setPath(nested, rest, v)
	} else {
		out[head] = setPath(map[string]any{}, rest, v)
	}
	return out
}

func toNum(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toTime interprets a raw document value as a point in time: RFC3339 or
// date-only strings, epoch milliseconds, or an already-parsed time.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, true
		}
		if ts, err := time.Parse("2006-01-02", t); err == nil {
			return ts, true
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

func notEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	return true
}

func equalAny(a, b any) bool {
	if an, ok := toNum(a); ok {
		bn, ok := toNum(b)
		return ok && an == bn
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return false
}

// compareAny orders raw values: nil first, then numbers, times, strings.
func compareAny(a, b any) int {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0
		}
		if a == nil {
			return -1
		}
		return 1
	}
	if an, ok := toNum(a); ok {
		if bn, ok := toNum(b); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
		return -1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
		return -1
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	return 0
}

// keyString renders a group or join key as a canonical map key.
func keyString(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("n:%g", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
