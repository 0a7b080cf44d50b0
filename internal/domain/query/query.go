// Package query defines immutable analytical query definitions: what
// collection a query reads, which parameters it accepts, the shape of its
// output records, and its degradation policy for missing data.
package query

import (
	"fmt"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
)

// Kind distinguishes aggregation queries from plain counts.
type Kind int

const (
	// Aggregation runs a pipeline and yields records.
	Aggregation Kind = iota
	// Count runs a filtered count and yields a single numeric record.
	Count
)

// MissingPolicy tells the normalizer what to do when a declared output
// field is absent or uncoercible in a raw record.
type MissingPolicy int

const (
	// DropRecord discards the whole record and counts it as dropped.
	DropRecord MissingPolicy = iota
	// NullValue keeps the record with a null in the field.
	NullValue
	// Substitute keeps the record with the field's declared default.
	Substitute
)

// FieldSpec declares one named, typed output field and its degradation
// policy.
type FieldSpec struct {
	Name      string
	Type      domain.Kind
	OnMissing MissingPolicy
	// Default is used when OnMissing is Substitute.
	Default domain.Value
	// Min and Max bound numeric fields inclusively; out-of-range values
	// (e.g. a negative rating) are treated as missing and fall under
	// OnMissing instead of propagating as malformed data.
	Min *float64
	Max *float64
}

// Definition is an immutable, registered analytical query.
type Definition struct {
	name       string
	collection string
	kind       Kind
	params     []ParamSpec
	fields     []FieldSpec
	pipe       pipeline.Pipeline
	filter     []pipeline.Condition
	order      []pipeline.SortKey
}

// Config carries the pieces of a Definition for construction.
type Config struct {
	Name       string
	Collection string
	Kind       Kind
	Params     []ParamSpec
	Fields     []FieldSpec
	Pipeline   pipeline.Pipeline
	// Filter is the count filter; only meaningful for Kind Count.
	Filter []pipeline.Condition
	// Order is the deterministic output order, including the tie-break.
	// Applied after normalization so repeated executions over identical
	// data return identical sequences.
	Order []pipeline.SortKey
}

// New validates and creates a Definition.
func New(cfg Config) (Definition, error) {
	if cfg.Name == "" {
		return Definition{}, fmt.Errorf("query name is required")
	}
	if cfg.Collection == "" {
		return Definition{}, fmt.Errorf("query %s: collection is required", cfg.Name)
	}
	if cfg.Kind == Aggregation && len(cfg.Fields) == 0 {
		return Definition{}, fmt.Errorf("query %s: output fields are required", cfg.Name)
	}
	seen := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.Name == "" {
			return Definition{}, fmt.Errorf("query %s: empty field name", cfg.Name)
		}
		if seen[f.Name] {
			return Definition{}, fmt.Errorf("query %s: duplicate field %s", cfg.Name, f.Name)
		}
		seen[f.Name] = true
	}
	pseen := make(map[string]bool, len(cfg.Params))
	for _, p := range cfg.Params {
		if p.Name == "" {
			return Definition{}, fmt.Errorf("query %s: empty parameter name", cfg.Name)
		}
		if pseen[p.Name] {
			return Definition{}, fmt.Errorf("query %s: duplicate parameter %s", cfg.Name, p.Name)
		}
		pseen[p.Name] = true
	}
	return Definition{
		name:       cfg.Name,
		collection: cfg.Collection,
		kind:       cfg.Kind,
		params:     cfg.Params,
		fields:     cfg.Fields,
		pipe:       cfg.Pipeline,
		filter:     cfg.Filter,
		order:      cfg.Order,
	}, nil
}

// MustNew creates a Definition or panics. Built-in catalog definitions are
// fixed at compile time, so a failure here is a programming error.
func MustNew(cfg Config) Definition {
	d, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the unique query name.
func (d Definition) Name() string { return d.name }

// Collection returns the primary collection the query reads.
func (d Definition) Collection() string { return d.collection }

// Kind returns the query kind.
func (d Definition) Kind() Kind { return d.kind }

// Params returns the parameter specs.
func (d Definition) Params() []ParamSpec { return d.params }

// Fields returns the declared output fields.
func (d Definition) Fields() []FieldSpec { return d.fields }

// Pipeline returns the aggregation pipeline template.
func (d Definition) Pipeline() pipeline.Pipeline { return d.pipe }

// Filter returns the count filter conditions.
func (d Definition) Filter() []pipeline.Condition { return d.filter }

// Order returns the deterministic output order.
func (d Definition) Order() []pipeline.SortKey { return d.order }

// Collections returns every collection the query touches: the primary one
// plus any lookup targets.
func (d Definition) Collections() []string {
	out := []string{d.collection}
	out = append(out, d.pipe.Collections()...)
	return out
}
