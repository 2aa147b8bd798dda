package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	points map[string]Point
	err    error
	calls  []string
}

func (g *stubGeocoder) Resolve(_ context.Context, place string) (Point, error) {
	g.calls = append(g.calls, place)
	if g.err != nil {
		return Point{}, g.err
	}
	p, ok := g.points[place]
	if !ok {
		return Point{}, ErrPlaceNotFound
	}
	return p, nil
}

func TestParse_PlainKeysBecomeEqualityClauses(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{
		"numberOfChildren":     {"2"},
		"comfortableWith.pets": {"true"},
		"description":          {"weekend help"},
	})
	require.NoError(t, err)

	assert.Equal(t, []FilterClause{
		{Field: "comfortableWith.pets", Operator: OpEq, Value: true},
		{Field: "description", Operator: OpEq, Value: "weekend help"},
		{Field: "numberOfChildren", Operator: OpEq, Value: int64(2)},
	}, plan.Filters())

	_, hasGeo := plan.Geo()
	assert.False(t, hasGeo)
}

func TestParse_OperatorKey(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{"hourlyRate[gt]": {"20"}})
	require.NoError(t, err)

	require.Len(t, plan.Filters(), 1)
	assert.Equal(t, FilterClause{Field: "hourlyRate", Operator: OpGt, Value: int64(20)}, plan.Filters()[0])
}

func TestParse_AllOperators(t *testing.T) {
	tests := []struct {
		key      string
		values   []string
		expected FilterClause
	}{
		{"hourlyRate[gte]", []string{"12.5"}, FilterClause{"hourlyRate", OpGte, 12.5}},
		{"hourlyRate[lt]", []string{"30"}, FilterClause{"hourlyRate", OpLt, int64(30)}},
		{"date[lte]", []string{"2024-01-01"}, FilterClause{"date", OpLte, "2024-01-01"}},
		{"ageOfChildren[in]", []string{"1,2", "5"}, FilterClause{"ageOfChildren", OpIn, []any{int64(1), int64(2), int64(5)}}},
		{"location.city[in]", []string{"Austin, Dallas"}, FilterClause{"location.city", OpIn, []any{"Austin", "Dallas"}}},
	}

	tr := NewTranslator(Options{})
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			plan, err := tr.Parse(context.Background(), RawParameters{tc.key: tc.values})
			require.NoError(t, err)
			assert.Equal(t, []FilterClause{tc.expected}, plan.Filters())
		})
	}
}

func TestParse_OperatorWordsInsideFieldNamesAreNotOperators(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{
		"ingredient": {"flour"},
		"gtin":       {"0042"},
	})
	require.NoError(t, err)

	assert.Equal(t, []FilterClause{
		{Field: "gtin", Operator: OpEq, Value: "0042"},
		{Field: "ingredient", Operator: OpEq, Value: "flour"},
	}, plan.Filters())
}

func TestParse_MalformedFilters(t *testing.T) {
	tests := []struct {
		name string
		raw  RawParameters
	}{
		{"unknown operator", RawParameters{"hourlyRate[eq]": {"1"}}},
		{"operator substring", RawParameters{"hourlyRate[ingt]": {"1"}}},
		{"unclosed bracket", RawParameters{"hourlyRate[gt": {"1"}}},
		{"nested operator", RawParameters{"hourlyRate[gt][lt]": {"1"}}},
		{"missing field", RawParameters{"[gt]": {"1"}}},
		{"stray bracket", RawParameters{"hourly]Rate": {"1"}}},
		{"repeated scalar", RawParameters{"hourlyRate": {"1", "2"}}},
		{"empty in list", RawParameters{"hourlyRate[in]": {" , "}}},
	}

	tr := NewTranslator(Options{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.Parse(context.Background(), tc.raw)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestParse_UnknownFieldsRejectedWhenFieldSetGiven(t *testing.T) {
	tr := NewTranslator(Options{Fields: NewFieldSet("hourlyRate", CreatedAtField)})

	for _, raw := range []RawParameters{
		{"password": {"x"}},
		{"select": {"hourlyRate,password"}},
		{"sort": {"-password"}},
	} {
		_, err := tr.Parse(context.Background(), raw)

		var perr *ParseError
		assert.ErrorAs(t, err, &perr, "raw=%v", raw)
	}

	_, err := tr.Parse(context.Background(), RawParameters{"select": {"id,hourlyRate"}})
	assert.NoError(t, err, "id is always selectable")
}

func TestParse_Select(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{"select": {"description, hourlyRate,,description"}})
	require.NoError(t, err)
	assert.Equal(t, Projection{"description", "hourlyRate"}, plan.Projection())

	plan, err = tr.Parse(context.Background(), RawParameters{})
	require.NoError(t, err)
	assert.True(t, plan.Projection().Empty())

	_, err = tr.Parse(context.Background(), RawParameters{"select": {"a", "b"}})
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_Sort(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{"sort": {"-date,name"}})
	require.NoError(t, err)
	assert.Equal(t, SortSpec{{Field: "date", Direction: Desc}, {Field: "name", Direction: Asc}}, plan.Sort())

	plan, err = tr.Parse(context.Background(), RawParameters{})
	require.NoError(t, err)
	assert.Equal(t, SortSpec{{Field: CreatedAtField, Direction: Desc}}, plan.Sort())

	_, err = tr.Parse(context.Background(), RawParameters{"sort": {"-"}})
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_PaginationDefaults(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawParameters
		expected PageRequest
	}{
		{"absent", RawParameters{}, PageRequest{Page: 1, Limit: 5}},
		{"zero and negative", RawParameters{"page": {"0"}, "limit": {"-5"}}, PageRequest{Page: 1, Limit: 5}},
		{"non numeric", RawParameters{"page": {"two"}, "limit": {"ten"}}, PageRequest{Page: 1, Limit: 5}},
		{"valid", RawParameters{"page": {"3"}, "limit": {"20"}}, PageRequest{Page: 3, Limit: 20}},
		{"repeated uses first", RawParameters{"page": {"2", "9"}}, PageRequest{Page: 2, Limit: 5}},
	}

	tr := NewTranslator(Options{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := tr.Parse(context.Background(), tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, plan.Page())
		})
	}
}

func TestParse_ConfiguredDefaultLimit(t *testing.T) {
	tr := NewTranslator(Options{DefaultLimit: 25})

	plan, err := tr.Parse(context.Background(), RawParameters{"limit": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, 25, plan.Page().Limit)
}

func TestParse_LimitClampedToMax(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		limit    string
		expected int
	}{
		{"huge", Options{}, "1000000000000", MaxLimit},
		{"just over", Options{}, "101", MaxLimit},
		{"at max", Options{}, "100", 100},
		{"configured max", Options{MaxLimit: 20}, "50", 20},
		{"default above max", Options{MaxLimit: 3, DefaultLimit: 10}, "", 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := NewTranslator(tc.opts).Parse(context.Background(), RawParameters{"limit": {tc.limit}})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, plan.Page().Limit)
		})
	}
}

func TestParse_HugePageStaysInRange(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{
		"page":  {"4611686018427387904"},
		"limit": {"4"},
	})
	require.NoError(t, err)

	page := plan.Page()
	assert.Equal(t, MaxPage(4), page.Page)
	assert.Positive(t, page.StartIndex())
	assert.GreaterOrEqual(t, page.EndIndex(), page.StartIndex())
}

func TestParse_GeoDefaultRadius(t *testing.T) {
	geo := &stubGeocoder{points: map[string]Point{"Austin": {Longitude: -97.7, Latitude: 30.3}}}
	tr := NewTranslator(Options{Geocoder: geo})

	plan, err := tr.Parse(context.Background(), RawParameters{"city": {"Austin"}})
	require.NoError(t, err)

	constraint, ok := plan.Geo()
	require.True(t, ok)
	assert.Equal(t, Point{Longitude: -97.7, Latitude: 30.3}, constraint.Center)
	assert.Equal(t, 10.0, constraint.RadiusKm)
	assert.InDelta(t, 10.0/6378.0, constraint.Radius, 1e-12)
	assert.Empty(t, plan.Filters(), "city and radius are reserved")
}

func TestParse_GeoExplicitRadius(t *testing.T) {
	geo := &stubGeocoder{points: map[string]Point{"Austin": {Longitude: -97.7, Latitude: 30.3}}}
	tr := NewTranslator(Options{Geocoder: geo})

	plan, err := tr.Parse(context.Background(), RawParameters{"city": {"Austin"}, "radius": {"63.78"}})
	require.NoError(t, err)

	constraint, ok := plan.Geo()
	require.True(t, ok)
	assert.InDelta(t, 0.01, constraint.Radius, 1e-12)

	for _, radius := range []string{"-1", "0", "abc"} {
		_, err = tr.Parse(context.Background(), RawParameters{"city": {"Austin"}, "radius": {radius}})
		var perr *ParseError
		require.ErrorAs(t, err, &perr, radius)
		assert.Equal(t, "radius", perr.Param)
	}
}

func TestParse_GeocoderFailure(t *testing.T) {
	geo := &stubGeocoder{points: map[string]Point{}}
	tr := NewTranslator(Options{Geocoder: geo})

	plan, err := tr.Parse(context.Background(), RawParameters{"city": {"Nowhereville"}})

	var gerr *GeocodingError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Nowhereville", gerr.Place)
	assert.True(t, gerr.NotFound())
	assert.Equal(t, Plan{}, plan)

	geo.err = errors.New("connection refused")
	_, err = tr.Parse(context.Background(), RawParameters{"city": {"Austin"}})
	require.ErrorAs(t, err, &gerr)
	assert.False(t, gerr.NotFound())
}

func TestParse_CityIsAFilterWithoutGeocoder(t *testing.T) {
	tr := NewTranslator(Options{})

	plan, err := tr.Parse(context.Background(), RawParameters{"city": {"Austin"}})
	require.NoError(t, err)
	assert.Equal(t, []FilterClause{{Field: "city", Operator: OpEq, Value: "Austin"}}, plan.Filters())
}

func TestParse_EmptyCitySkipsGeocoding(t *testing.T) {
	geo := &stubGeocoder{}
	tr := NewTranslator(Options{Geocoder: geo})

	plan, err := tr.Parse(context.Background(), RawParameters{"city": {" "}})
	require.NoError(t, err)

	_, ok := plan.Geo()
	assert.False(t, ok)
	assert.Empty(t, geo.calls)
}

func TestPlan_AccessorsReturnCopies(t *testing.T) {
	tr := NewTranslator(Options{})
	plan, err := tr.Parse(context.Background(), RawParameters{"a": {"1"}, "sort": {"a"}})
	require.NoError(t, err)

	filters := plan.Filters()
	filters[0].Field = "mutated"
	sortSpec := plan.Sort()
	sortSpec[0].Field = "mutated"

	assert.Equal(t, "a", plan.Filters()[0].Field)
	assert.Equal(t, "a", plan.Sort()[0].Field)
}

func TestProjection_Apply(t *testing.T) {
	doc := Document{
		"id":          "42",
		"description": "evenings",
		"hourlyRate":  18.0,
		"location": map[string]any{
			"city":  "Austin",
			"state": "TX",
		},
	}

	got := Projection{"hourlyRate", "location.city", "missing.path"}.Apply(doc)

	assert.Equal(t, Document{
		"id":         "42",
		"hourlyRate": 18.0,
		"location":   map[string]any{"city": "Austin"},
	}, got)

	assert.Equal(t, doc, Projection{}.Apply(doc))
}
