// Package pipeline defines the declarative aggregation language evaluated
// by the document store adapter. Pipelines are data, not query strings, so
// caller input can never be injected into them; parameters bind into
// placeholder operands by name at execution time.
package pipeline

import "fmt"

// Op enumerates the comparison operators a match condition may use.
type Op int

const (
	// OpEq matches values equal to the operand.
	OpEq Op = iota
	// OpNe matches values not equal to the operand.
	OpNe
	// OpGte matches numeric values >= the operand.
	OpGte
	// OpLte matches numeric values <= the operand.
	OpLte
	// OpExists matches documents where the path resolves to a non-null value.
	OpExists
	// OpNotEmpty matches non-null values that are not empty strings or lists.
	OpNotEmpty
	// OpSubstr matches strings containing the operand, case-insensitively.
	// An empty operand matches every document, so optional text filters can
	// bind to empty strings.
	OpSubstr
	// OpHas matches list fields containing the operand (or string fields
	// equal to it). An empty operand matches every document.
	OpHas
)

// Operand is a condition's right-hand side: either a literal or a named
// parameter placeholder resolved by Bind.
type Operand struct {
	lit   any
	param string
}

// Lit creates a literal operand.
func Lit(v any) Operand { return Operand{lit: v} }

// P creates a parameter placeholder operand.
func P(name string) Operand { return Operand{param: name} }

// IsParam reports whether the operand is an unbound placeholder.
func (o Operand) IsParam() bool { return o.param != "" }

// Param returns the placeholder name.
func (o Operand) Param() string { return o.param }

// Value returns the literal value.
func (o Operand) Value() any { return o.lit }

// Condition is a single match clause over a dotted document path.
type Condition struct {
	Path    string
	Op      Op
	Operand Operand
}

// GroupKeyKind enumerates how the group stage derives its key.
type GroupKeyKind int

const (
	// GroupByField groups by the raw value at a path.
	GroupByField GroupKeyKind = iota
	// GroupByDecade groups a numeric year path into decades (year - year%10).
	GroupByDecade
	// GroupByYearMonth groups a date path into "YYYY-MM" buckets.
	GroupByYearMonth
)

// GroupKey describes the grouping key of a Group stage.
type GroupKey struct {
	Kind GroupKeyKind
	Path string
	// As is the output field name the key is emitted under.
	As string
}

// AccKind enumerates group accumulators.
type AccKind int

const (
	// AccCount counts documents per group.
	AccCount AccKind = iota
	// AccSum sums a numeric path; null and missing values contribute nothing.
	AccSum
	// AccAvg averages a numeric path; null and missing values are excluded
	// from both numerator and denominator.
	AccAvg
	// AccCountNumeric counts documents whose path holds a numeric value.
	// It reports the exact sample size an AccAvg over the same path used.
	AccCountNumeric
)

// Accumulator describes one aggregate output of a Group stage.
type Accumulator struct {
	Kind AccKind
	Path string
	// As is the output field name.
	As string
}

// SortKey orders documents by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Projection maps an output field name to a dotted source path.
type Projection struct {
	Name string
	Path string
}

// Stage is one pipeline step. Exactly one member is set.
type Stage struct {
	Match   []Condition
	Unwind  string
	Group   *GroupStage
	Project []Projection
	Sort    []SortKey
	Limit   *Operand
	Lookup  *LookupStage
}

// GroupStage groups documents and computes accumulators. A nil Key folds
// the whole input into a single group.
type GroupStage struct {
	Key  *GroupKey
	Accs []Accumulator
}

// LookupStage left-joins documents from another collection. The first
// matching foreign document is embedded under As; documents with no match
// keep a null As field.
type LookupStage struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages []Stage
}

// Stages returns the stage list.
func (p Pipeline) Stages() []Stage { return p.stages }

// Collections returns every collection the pipeline touches beyond its
// primary one (lookup targets).
func (p Pipeline) Collections() []string {
	var out []string
	for _, st := range p.stages {
		if st.Lookup != nil {
			out = append(out, st.Lookup.From)
		}
	}
	return out
}

// Bind resolves every parameter placeholder against params and returns a
// concrete pipeline. Unbound placeholders are an error; binding never
// mutates the template.
func (p Pipeline) Bind(params map[string]any) (Pipeline, error) {
	out := Pipeline{stages: make([]Stage, len(p.stages))}
	for i, st := range p.stages {
		bound := st
		if len(st.Match) > 0 {
			conds := make([]Condition, len(st.Match))
			for j, c := range st.Match {
				rc, err := bindOperand(c.Operand, params)
				if err != nil {
					return Pipeline{}, fmt.Errorf("match %s: %w", c.Path, err)
				}
				c.Operand = rc
				conds[j] = c
			}
			bound.Match = conds
		}
		if st.Limit != nil {
			lim, err := bindOperand(*st.Limit, params)
			if err != nil {
				return Pipeline{}, fmt.Errorf("limit: %w", err)
			}
			bound.Limit = &lim
		}
		out.stages[i] = bound
	}
	return out, nil
}

func bindOperand(o Operand, params map[string]any) (Operand, error) {
	if !o.IsParam() {
		return o, nil
	}
	v, ok := params[o.param]
	if !ok {
		return Operand{}, fmt.Errorf("unbound parameter %q", o.param)
	}
	return Lit(v), nil
}

// Builder assembles a Pipeline stage by stage.
type Builder struct {
	p Pipeline
}

// New starts an empty pipeline.
func New() *Builder { return &Builder{} }

// Match appends a match stage.
func (b *Builder) Match(conds ...Condition) *Builder {
	b.p.stages = append(b.p.stages, Stage{Match: conds})
	return b
}

// Unwind appends an unwind stage over a list-valued path.
func (b *Builder) Unwind(path string) *Builder {
	b.p.stages = append(b.p.stages, Stage{Unwind: path})
	return b
}

// Group appends a group stage.
func (b *Builder) Group(key *GroupKey, accs ...Accumulator) *Builder {
	b.p.stages = append(b.p.stages, Stage{Group: &GroupStage{Key: key, Accs: accs}})
	return b
}

// Project appends a projection stage.
func (b *Builder) Project(fields ...Projection) *Builder {
	b.p.stages = append(b.p.stages, Stage{Project: fields})
	return b
}

// Sort appends a sort stage.
func (b *Builder) Sort(keys ...SortKey) *Builder {
	b.p.stages = append(b.p.stages, Stage{Sort: keys})
	return b
}

// Limit appends a fixed limit stage.
func (b *Builder) Limit(n int) *Builder {
	op := Lit(n)
	b.p.stages = append(b.p.stages, Stage{Limit: &op})
	return b
}

// LimitP appends a parameterized limit stage.
func (b *Builder) LimitP(param string) *Builder {
	op := P(param)
	b.p.stages = append(b.p.stages, Stage{Limit: &op})
	return b
}

// Lookup appends a left-join stage against another collection.
func (b *Builder) Lookup(from, localField, foreignField, as string) *Builder {
	b.p.stages = append(b.p.stages, Stage{Lookup: &LookupStage{
		From: from, LocalField: localField, ForeignField: foreignField, As: as,
	}})
	return b
}

// Build returns the assembled pipeline.
func (b *Builder) Build() Pipeline { return b.p }

// Eq is shorthand for an equality condition.
func Eq(path string, op Operand) Condition { return Condition{Path: path, Op: OpEq, Operand: op} }

// Ne is shorthand for an inequality condition.
func Ne(path string, op Operand) Condition { return Condition{Path: path, Op: OpNe, Operand: op} }

// Gte is shorthand for a >= condition.
func Gte(path string, op Operand) Condition { return Condition{Path: path, Op: OpGte, Operand: op} }

// Lte is shorthand for a <= condition.
func Lte(path string, op Operand) Condition { return Condition{Path: path, Op: OpLte, Operand: op} }

// Exists is shorthand for a non-null presence condition.
func Exists(path string) Condition { return Condition{Path: path, Op: OpExists} }

// NotEmpty is shorthand for a present, non-empty condition.
func NotEmpty(path string) Condition { return Condition{Path: path, Op: OpNotEmpty} }

// Substr is shorthand for a case-insensitive substring condition.
func Substr(path string, op Operand) Condition { return Condition{Path: path, Op: OpSubstr, Operand: op} }

// Has is shorthand for a list containment condition.
func Has(path string, op Operand) Condition { return Condition{Path: path, Op: OpHas, Operand: op} }
