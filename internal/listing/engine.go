package listing

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// Envelope is the response body of a listing operation.
type Envelope struct {
	Context   string `json:"Context"`
	TotalData int    `json:"TotalData"`
	Data      []any  `json:"Data"`
}

// Source describes how one resource is filtered, sorted and shaped.
type Source[T any] struct {
	Context  string
	MaxLimit int
	SortKey  func(T) string
	// Filters maps a filter name to the record field it matches against.
	Filters map[string]func(T) string
	Flat    func(T) any
	Full    func(T) any
}

// Run applies q to records. records is not modified.
//
// Order of operations: filter, stable ascending sort (reversed for DESC),
// offset, limit. TotalData always reports the unfiltered record count.
func Run[T any](records []T, q Query, src Source[T]) (Envelope, error) {
	q = q.normalized()
	env := Envelope{Context: src.Context, TotalData: len(records)}

	if q.Flatten {
		if q.hasNonDefault() {
			return Envelope{}, shared.InvalidArgument("flatten cannot be combined with limit, offset, sortOrder or filters")
		}
		env.Data = make([]any, 0, len(records))
		for _, rec := range records {
			env.Data = append(env.Data, src.Flat(rec))
		}
		return env, nil
	}

	if err := validateQuery(q, src); err != nil {
		return Envelope{}, err
	}

	matched := filter(records, q.Filters, src.Filters)

	slices.SortStableFunc(matched, func(a, b T) int {
		return strings.Compare(src.SortKey(a), src.SortKey(b))
	})
	if q.SortOrder == SortDesc {
		slices.Reverse(matched)
	}

	limit := q.effectiveLimit()
	env.Data = make([]any, 0, min(limit, len(matched)))
	if q.Offset < len(matched) {
		end := min(q.Offset+limit, len(matched))
		for _, rec := range matched[q.Offset:end] {
			env.Data = append(env.Data, src.Full(rec))
		}
	}
	return env, nil
}

func validateQuery[T any](q Query, src Source[T]) error {
	fields := map[string]string{}
	if err := validate.Struct(q); err != nil {
		fields = validationFields(err)
	}
	if src.MaxLimit > 0 && q.effectiveLimit() > src.MaxLimit {
		fields[ParamLimit] = fmt.Sprintf("must not exceed %d", src.MaxLimit)
	}
	unknown := make([]string, 0)
	for name := range q.Filters {
		if _, ok := src.Filters[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fields[name] = "unknown filter"
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// filter returns a fresh slice of records matching every supplied filter by
// case-insensitive substring.
func filter[T any](records []T, filters map[string]string, fields map[string]func(T) string) []T {
	out := make([]T, 0, len(records))
	if len(filters) == 0 {
		return append(out, records...)
	}
	fold := cases.Fold()
	needles := make(map[string]string, len(filters))
	for name, v := range filters {
		needles[name] = fold.String(v)
	}
	for _, rec := range records {
		if matchesAll(rec, needles, fields, fold) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll[T any](rec T, needles map[string]string, fields map[string]func(T) string, fold cases.Caser) bool {
	for name, needle := range needles {
		if !strings.Contains(fold.String(fields[name](rec)), needle) {
			return false
		}
	}
	return true
}
