package listing

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

type testRole struct {
	ID          int64
	Name        string
	Description string
}

type flatRole struct {
	ID   int64
	Name string
}

func roleSource() Source[testRole] {
	return Source[testRole]{
		Context:  "Roles",
		MaxLimit: 50,
		SortKey:  func(r testRole) string { return r.Name },
		Filters: map[string]func(testRole) string{
			"name": func(r testRole) string { return r.Name },
		},
		Flat: func(r testRole) any { return flatRole{ID: r.ID, Name: r.Name} },
		Full: func(r testRole) any { return r },
	}
}

func seededRoles() []testRole {
	return []testRole{
		{ID: 1, Name: "Admin", Description: "full access"},
		{ID: 2, Name: "Guest", Description: "read only"},
	}
}

func TestRunFilterByNameKeepsUnfilteredTotal(t *testing.T) {
	env, err := Run(seededRoles(), Query{Filters: map[string]string{"name": "admin"}}, roleSource())
	require.NoError(t, err)

	assert.Equal(t, "Roles", env.Context)
	assert.Equal(t, 2, env.TotalData)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Admin", env.Data[0].(testRole).Name)
}

func TestRunFlattenReturnsPairsInNaturalOrder(t *testing.T) {
	records := []testRole{{ID: 2, Name: "Guest"}, {ID: 1, Name: "Admin"}}
	env, err := Run(records, Query{Flatten: true}, roleSource())
	require.NoError(t, err)

	assert.Equal(t, 2, env.TotalData)
	assert.Equal(t, []any{flatRole{ID: 2, Name: "Guest"}, flatRole{ID: 1, Name: "Admin"}}, env.Data)
}

func TestRunFlattenAcceptsDefaultLimit(t *testing.T) {
	env, err := Run(seededRoles(), Query{Flatten: true, Limit: DefaultLimit}, roleSource())
	require.NoError(t, err)
	assert.Len(t, env.Data, 2)
}

func TestRunFlattenExclusivity(t *testing.T) {
	cases := map[string]Query{
		"limit":     {Flatten: true, Limit: 10},
		"offset":    {Flatten: true, Offset: 1},
		"sortOrder": {Flatten: true, SortOrder: "asc"},
		"filter":    {Flatten: true, Filters: map[string]string{"name": "a"}},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Run(seededRoles(), q, roleSource())
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
		})
	}
}

func TestRunFlattenIgnoresEmptyFilterValues(t *testing.T) {
	_, err := Run(seededRoles(), Query{Flatten: true, Filters: map[string]string{"name": ""}}, roleSource())
	assert.NoError(t, err)
}

func TestRunSortIsStableAndDescIsReverse(t *testing.T) {
	records := []testRole{
		{ID: 1, Name: "beta"},
		{ID: 2, Name: "alpha"},
		{ID: 3, Name: "beta"},
		{ID: 4, Name: "gamma"},
		{ID: 5, Name: "alpha"},
	}
	asc, err := Run(records, Query{SortOrder: "asc"}, roleSource())
	require.NoError(t, err)
	desc, err := Run(records, Query{SortOrder: "DESC"}, roleSource())
	require.NoError(t, err)

	ids := func(env Envelope) []int64 {
		out := make([]int64, 0, len(env.Data))
		for _, d := range env.Data {
			out = append(out, d.(testRole).ID)
		}
		return out
	}
	assert.Equal(t, []int64{2, 5, 1, 3, 4}, ids(asc))
	assert.Equal(t, []int64{4, 3, 1, 5, 2}, ids(desc))

	// input untouched
	assert.Equal(t, int64(1), records[0].ID)
}

func TestRunDefaultSortIsAscending(t *testing.T) {
	records := []testRole{{ID: 1, Name: "b"}, {ID: 2, Name: "a"}}
	env, err := Run(records, Query{}, roleSource())
	require.NoError(t, err)
	assert.Equal(t, "a", env.Data[0].(testRole).Name)
}

func TestRunFilterConjunction(t *testing.T) {
	type user struct {
		Email string
		Role  string
	}
	src := Source[user]{
		Context:  "User",
		MaxLimit: 100,
		SortKey:  func(u user) string { return u.Email },
		Filters: map[string]func(user) string{
			"email": func(u user) string { return u.Email },
			"roles": func(u user) string { return u.Role },
		},
		Flat: func(u user) any { return u.Email },
		Full: func(u user) any { return u },
	}
	records := []user{
		{Email: "ann@shop.io", Role: "Admin"},
		{Email: "bob@shop.io", Role: "Guest"},
		{Email: "ann@other.io", Role: "Guest"},
	}

	env, err := Run(records, Query{Filters: map[string]string{"email": "ANN", "roles": "guest"}}, src)
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "ann@other.io", env.Data[0].(user).Email)
	assert.Equal(t, 3, env.TotalData)

	env, err = Run(records, Query{Filters: map[string]string{"email": "zzz"}}, src)
	require.NoError(t, err)
	assert.Empty(t, env.Data)
	assert.NotNil(t, env.Data)
}

func TestRunOffsetAndLimit(t *testing.T) {
	records := make([]testRole, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, testRole{ID: int64(i), Name: string(rune('a' + i))})
	}

	env, err := Run(records, Query{Offset: 3, Limit: 4}, roleSource())
	require.NoError(t, err)
	require.Len(t, env.Data, 4)
	assert.Equal(t, "d", env.Data[0].(testRole).Name)
	assert.Equal(t, "g", env.Data[3].(testRole).Name)
	assert.Equal(t, 10, env.TotalData)

	env, err = Run(records, Query{Offset: 8, Limit: 4}, roleSource())
	require.NoError(t, err)
	assert.Len(t, env.Data, 2)

	env, err = Run(records, Query{Offset: 20}, roleSource())
	require.NoError(t, err)
	assert.Empty(t, env.Data)
}

func TestRunRejectsInvalidQueries(t *testing.T) {
	cases := map[string]Query{
		"limit over max":  {Limit: 51},
		"negative limit":  {Limit: -1},
		"negative offset": {Offset: -1},
		"bad sort":        {SortOrder: "sideways"},
		"unknown filter":  {Filters: map[string]string{"email": "x"}},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Run(seededRoles(), q, roleSource())
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidArgument)
			var verr *shared.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestParseQuery(t *testing.T) {
	values := url.Values{}
	values.Set("flatten", "false")
	values.Set("limit", "10")
	values.Set("offset", "5")
	values.Set("sortOrder", "desc")
	values.Set("name", "adm")
	values.Set("ignored", "x")

	q, err := ParseQuery(values, "name")
	require.NoError(t, err)
	assert.False(t, q.Flatten)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)
	assert.Equal(t, "desc", q.SortOrder)
	assert.Equal(t, map[string]string{"name": "adm"}, q.Filters)
}

func TestParseQueryEmpty(t *testing.T) {
	q, err := ParseQuery(url.Values{}, "name")
	require.NoError(t, err)
	assert.Equal(t, Query{}, q)
}

func TestParseQueryMalformed(t *testing.T) {
	for _, raw := range []string{"flatten=maybe", "limit=ten", "offset=1.5"} {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)
		_, err = ParseQuery(values)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument, raw)
	}
}
