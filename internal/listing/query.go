// Package listing implements the pagination, filtering, sorting and flatten
// transform shared by every collection endpoint.
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

// DefaultLimit applies when a query carries no limit.
const DefaultLimit = 50

// Sort orders.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Query parameters recognised on every listing endpoint.
const (
	ParamFlatten   = "flatten"
	ParamLimit     = "limit"
	ParamOffset    = "offset"
	ParamSortOrder = "sortOrder"
)

// Query describes one listing request. Zero values mean "not supplied".
type Query struct {
	Flatten   bool
	Limit     int    `validate:"gte=0"`
	Offset    int    `validate:"gte=0"`
	SortOrder string `validate:"omitempty,oneof=ASC DESC"`
	Filters   map[string]string
}

var validate = validator.New()

// effectiveLimit resolves the zero value to DefaultLimit.
func (q Query) effectiveLimit() int {
	if q.Limit == 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q Query) normalized() Query {
	q.SortOrder = strings.ToUpper(strings.TrimSpace(q.SortOrder))
	if len(q.Filters) > 0 {
		filters := make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			if v == "" {
				continue
			}
			filters[k] = v
		}
		q.Filters = filters
	}
	return q
}

// hasNonDefault reports whether any field other than Flatten deviates from its default.
func (q Query) hasNonDefault() bool {
	if q.Limit != 0 && q.Limit != DefaultLimit {
		return true
	}
	return q.Offset != 0 || q.SortOrder != "" || len(q.Filters) > 0
}

// ParseQuery reads listing parameters from HTTP query values. Only the
// supplied filter fields are collected; other parameters are ignored.
func ParseQuery(values url.Values, filterFields ...string) (Query, error) {
	var q Query
	fields := map[string]string{}

	if raw := strings.TrimSpace(values.Get(ParamFlatten)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fields[ParamFlatten] = "must be true or false"
		}
		q.Flatten = v
	}
	if raw := strings.TrimSpace(values.Get(ParamLimit)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fields[ParamLimit] = "must be an integer"
		}
		q.Limit = v
	}
	if raw := strings.TrimSpace(values.Get(ParamOffset)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fields[ParamOffset] = "must be an integer"
		}
		q.Offset = v
	}
	q.SortOrder = values.Get(ParamSortOrder)

	for _, name := range filterFields {
		if v := values.Get(name); v != "" {
			if q.Filters == nil {
				q.Filters = map[string]string{}
			}
			q.Filters[name] = v
		}
	}
	if len(fields) > 0 {
		return Query{}, &shared.ValidationError{Fields: fields}
	}
	return q, nil
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["query"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Limit":
			fields[ParamLimit] = "must not be negative"
		case "Offset":
			fields[ParamOffset] = "must not be negative"
		case "SortOrder":
			fields[ParamSortOrder] = "must be ASC or DESC"
		default:
			fields[strings.ToLower(fe.Field())] = fe.Error()
		}
	}
	return fields
}
