// Package domain holds the core value types and error taxonomy shared by
// the catalog, adapter, engine and composer layers. Values are immutable
// tagged unions; records map field names to values.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind discriminates the value union. The zero Kind is KindNull, so a
// zero Value is a null.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
	KindGeo
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindGeo:
		return "geo"
	case KindStringList:
		return "string_list"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// GeoPoint is a longitude/latitude pair, in that order.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// Value is an immutable typed scalar. Construct with Null, String,
// Number, Date, Geo or StringList; read with the getter matching Kind.
// Getters for a mismatched kind return the zero of their type.
type Value struct {
	kind  Kind
	str   string
	num   float64
	date  time.Time
	point GeoPoint
	list  []string
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Geo returns a geographic point value.
func Geo(lon, lat float64) Value {
	return Value{kind: KindGeo, point: GeoPoint{Lon: lon, Lat: lat}}
}

// StringList returns a list-of-strings value. The slice is copied so the
// value stays immutable.
func StringList(ss []string) Value {
	cp := make([]string, len(ss))
	copy(cp, ss)
	return Value{kind: KindStringList, list: cp}
}

// Kind reports the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload, or "" for other kinds.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload, or 0 for other kinds.
func (v Value) Num() float64 { return v.num }

// Time returns the date payload, or the zero time for other kinds.
func (v Value) Time() time.Time { return v.date }

// Point returns the geographic payload, or the zero point for other kinds.
func (v Value) Point() GeoPoint { return v.point }

// List returns a copy of the string-list payload, or nil for other kinds.
func (v Value) List() []string {
	if v.list == nil {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Equal reports deep equality of kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.date.Equal(o.date)
	case KindGeo:
		return v.point == o.point
	case KindStringList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values: null sorts before everything, then by kind,
// then by payload (numeric, chronological or lexicographic). Geo and list
// values compare by their textual form; ordering is total so sorts are
// deterministic.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindString:
		return strings.Compare(v.str, o.str)
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case KindDate:
		return v.date.Compare(o.date)
	case KindGeo, KindStringList:
		return strings.Compare(v.GoString(), o.GoString())
	}
	return 0
}

// GoString renders the value for debugging and stable tie-breaks.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindDate:
		return v.date.UTC().Format(time.RFC3339)
	case KindGeo:
		return fmt.Sprintf("[%g,%g]", v.point.Lon, v.point.Lat)
	case KindStringList:
		return "[" + strings.Join(v.list, ",") + "]"
	}
	return ""
}

// Record maps field names to values. One record is one row of a result.
type Record map[string]Value

// FieldNames returns the record's field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
