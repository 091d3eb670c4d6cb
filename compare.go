package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

type DiffKind int

const (
	DiffChanged DiffKind = iota
	DiffMissing
	DiffUnexpected
)

// Difference is one place where the actual document diverges from the
// expected one.
type Difference struct {
	Path     string
	Kind     DiffKind
	Expected interface{}
	Got      interface{}
	// Element is set when the nearest step is an array index rather than an
	// object key.
	Element bool
}

func (d Difference) String() string {
	what := "key"
	if d.Element {
		what = "element"
	}
	switch d.Kind {
	case DiffMissing:
		return fmt.Sprintf("%s: missing %s, expected %s", d.Path, what, formatValue(d.Expected))
	case DiffUnexpected:
		return fmt.Sprintf("%s: unexpected %s, got %s", d.Path, what, formatValue(d.Got))
	}
	return fmt.Sprintf("%s: expected %s, got %s", d.Path, formatValue(d.Expected), formatValue(d.Got))
}

const rootPath = "<root>"

// CompareDocuments reports how got differs from expected. Object keys are
// compared regardless of order, numbers by value, and values of different
// JSON types never match (1 is not "1"). Differences come in document
// order: object keys sorted, array elements by index.
func CompareDocuments(expected, got interface{}) []Difference {
	r := &diffReporter{}
	cmp.Equal(expected, got, cmp.Comparer(numbersEqual), cmp.Reporter(r))
	return r.diffs
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ra, okA := new(big.Rat).SetString(string(a))
	rb, okB := new(big.Rat).SetString(string(b))
	if !okA || !okB {
		return false
	}
	return ra.Cmp(rb) == 0
}

type diffReporter struct {
	path  cmp.Path
	diffs []Difference
}

func (r *diffReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *diffReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func (r *diffReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	last := r.path.Last()
	vx, vy := last.Values()
	d := Difference{Path: r.documentPath(), Kind: DiffChanged, Expected: valueOf(vx), Got: valueOf(vy), Element: r.atElement()}

	switch last.(type) {
	case cmp.MapIndex, cmp.SliceIndex:
		if !vy.IsValid() {
			d.Kind = DiffMissing
		} else if !vx.IsValid() {
			d.Kind = DiffUnexpected
		}
	}
	r.diffs = append(r.diffs, d)
}

// atElement reports whether the innermost key or index step is an index.
func (r *diffReporter) atElement() bool {
	for i := len(r.path) - 1; i >= 0; i-- {
		switch r.path[i].(type) {
		case cmp.SliceIndex:
			return true
		case cmp.MapIndex:
			return false
		}
	}
	return false
}

func valueOf(v reflect.Value) interface{} {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

// documentPath renders the current cmp path as dotted keys and [i] indexes.
func (r *diffReporter) documentPath() string {
	var sb strings.Builder
	for _, step := range r.path {
		switch s := step.(type) {
		case cmp.MapIndex:
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(fmt.Sprint(s.Key().Interface()))
		case cmp.SliceIndex:
			k := s.Key()
			if k < 0 {
				kx, ky := s.SplitKeys()
				k = kx
				if k < 0 {
					k = ky
				}
			}
			sb.WriteString("[" + strconv.Itoa(k) + "]")
		}
	}
	if sb.Len() == 0 {
		return rootPath
	}
	return sb.String()
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case json.Number:
		return t.String()
	case string:
		return strconv.Quote(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
