// Package query turns raw list-endpoint parameters into a query plan and runs
// that plan against a resource repository.
//
// It is shared by every listable resource (jobs, sitters):
//   - filter operators written as nested keys (hourlyRate[gt]=20)
//   - field selection (select=description,hourlyRate)
//   - sorting (sort=-date,hourlyRate)
//   - pagination (page=2&limit=10)
//   - an optional geo radius built from a geocoded place name (city=Austin&radius=25)
//
// The package knows nothing about HTTP or the database driver. Storage and
// geocoding are reached through the Repository and Geocoder interfaces.
package query

import (
	"context"
	"math"
	"net/url"
	"slices"
	"strings"
)

// RawParameters is the request query string as received: every key maps to
// all values sent for it, in order. Operator keys keep their bracket form,
// e.g. "hourlyRate[gte]".
type RawParameters map[string][]string

// FromValues copies url.Values into RawParameters.
func FromValues(v url.Values) RawParameters {
	raw := make(RawParameters, len(v))
	for k, vs := range v {
		raw[k] = slices.Clone(vs)
	}
	return raw
}

// ComparisonOp is the operator of a single filter clause.
type ComparisonOp string

const (
	OpEq  ComparisonOp = "eq"
	OpGt  ComparisonOp = "gt"
	OpGte ComparisonOp = "gte"
	OpLt  ComparisonOp = "lt"
	OpLte ComparisonOp = "lte"
	OpIn  ComparisonOp = "in"
)

// operatorTokens are the words accepted as nested operator keys.
// eq is implied by the absence of a token and is not accepted explicitly.
var operatorTokens = map[string]ComparisonOp{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

// FilterClause is one field comparison. Clauses in a plan combine with AND.
//
// Value is a scalar (string, int64, float64, bool) for every operator except
// OpIn, where it is a []any of scalars.
type FilterClause struct {
	Field    string       `json:"field"`
	Operator ComparisonOp `json:"operator"`
	Value    any          `json:"value"`
}

// Point is a WGS 84 coordinate.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// EarthRadiusKm converts kilometres into radians of arc on a unit sphere.
const EarthRadiusKm = 6378.0

// DefaultRadiusKm is used when a place name is given without a radius.
const DefaultRadiusKm = 10.0

// GeoConstraint is a circular search region around a geocoded point.
// Radius is RadiusKm expressed in radians (RadiusKm / EarthRadiusKm).
type GeoConstraint struct {
	Center   Point   `json:"center"`
	RadiusKm float64 `json:"radiusKm"`
	Radius   float64 `json:"radius"`
}

// NewGeoConstraint builds a constraint around center with a radius in km.
func NewGeoConstraint(center Point, radiusKm float64) GeoConstraint {
	return GeoConstraint{
		Center:   center,
		RadiusKm: radiusKm,
		Radius:   radiusKm / EarthRadiusKm,
	}
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// CreatedAtField is the record creation time field every resource exposes.
const CreatedAtField = "createdAt"

// SortField orders results by one field.
type SortField struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// SortSpec is applied in order: the first field is the primary key.
type SortSpec []SortField

// DefaultSort returns newest records first.
func DefaultSort() SortSpec {
	return SortSpec{{Field: CreatedAtField, Direction: Desc}}
}

// Document is one record as returned by a repository.
type Document map[string]any

// IDField is always kept by Projection.Apply.
const IDField = "id"

// Projection lists the fields to return. Empty means every field.
// Dotted names ("location.city") select nested fields.
type Projection []string

// Empty reports whether every field should be returned.
func (p Projection) Empty() bool {
	return len(p) == 0
}

// Apply returns a copy of doc containing only the projected fields plus the id.
// doc is returned unchanged when the projection is empty.
func (p Projection) Apply(doc Document) Document {
	if p.Empty() {
		return doc
	}

	out := Document{}
	if id, ok := doc[IDField]; ok {
		out[IDField] = id
	}

	for _, field := range p {
		copyPath(out, doc, strings.Split(field, "."))
	}

	return out
}

// copyPath copies the value at path from src into dst, creating the
// intermediate maps in dst. Missing paths are skipped.
func copyPath(dst, src map[string]any, path []string) {
	value, ok := src[path[0]]
	if !ok {
		return
	}

	if len(path) == 1 {
		dst[path[0]] = value
		return
	}

	var nested map[string]any
	switch v := value.(type) {
	case map[string]any:
		nested = v
	case Document:
		nested = v
	default:
		return
	}

	child, ok := dst[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		dst[path[0]] = child
	}
	copyPath(child, nested, path[1:])
}

const (
	// DefaultPage is the first page.
	DefaultPage = 1

	// DefaultLimit is the page size used when none (or an invalid one) is given.
	DefaultLimit = 5

	// MaxLimit is the largest page size a request may ask for.
	MaxLimit = 100
)

// MaxPage is the highest page number whose EndIndex fits in an int for the
// given page size. Parse clamps larger pages to it; such a page is past the
// end of any collection and comes back empty.
func MaxPage(limit int) int {
	if limit <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / limit
}

// PageRequest selects one page of results. Both fields are always >= 1
// and Limit never exceeds the translator's maximum.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// StartIndex is the number of records skipped before this page.
func (p PageRequest) StartIndex() int {
	return (p.Page - 1) * p.Limit
}

// EndIndex is the index one past the last record of this page.
func (p PageRequest) EndIndex() int {
	return p.Page * p.Limit
}

// Criteria is the record-matching part of a plan.
type Criteria struct {
	Filters []FilterClause
	Geo     *GeoConstraint
}

// Plan is the normalized form of one list request. It is built by
// Translator.Parse and only exposes copies of its contents.
type Plan struct {
	filters    []FilterClause
	geo        *GeoConstraint
	projection Projection
	sort       SortSpec
	page       PageRequest
}

func (p Plan) Filters() []FilterClause {
	return slices.Clone(p.filters)
}

// Geo returns the geo constraint and whether one is set.
func (p Plan) Geo() (GeoConstraint, bool) {
	if p.geo == nil {
		return GeoConstraint{}, false
	}
	return *p.geo, true
}

func (p Plan) Projection() Projection {
	return slices.Clone(p.projection)
}

func (p Plan) Sort() SortSpec {
	return slices.Clone(p.sort)
}

func (p Plan) Page() PageRequest {
	return p.page
}

// Criteria returns a copy of the plan's filters and geo constraint.
func (p Plan) Criteria() Criteria {
	c := Criteria{Filters: p.Filters()}
	if geo, ok := p.Geo(); ok {
		c.Geo = &geo
	}
	return c
}

// FindParams is everything a repository needs to fetch one page.
type FindParams struct {
	Criteria
	Projection Projection
	Sort       SortSpec
	Skip       int
	Limit      int
}

// Repository is the read side of one resource's storage.
type Repository interface {
	// Count returns the number of records matching criteria.
	// A nil criteria counts every record of the resource.
	Count(ctx context.Context, criteria *Criteria) (int, error)

	// Find returns at most params.Limit records after skipping params.Skip.
	Find(ctx context.Context, params FindParams) ([]Document, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (Point, error)
}

// FieldSet is the set of field names a resource accepts in filters, sort
// and select.
type FieldSet map[string]struct{}

// NewFieldSet builds a FieldSet from names.
func NewFieldSet(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, n := range names {
		fs[n] = struct{}{}
	}
	return fs
}

// Has reports whether name is a known field. A nil set accepts everything.
func (fs FieldSet) Has(name string) bool {
	if fs == nil {
		return true
	}
	_, ok := fs[name]
	return ok
}

// PageResult is one page of records plus navigation metadata.
type PageResult struct {
	Items      []Document
	TotalCount int
	Page       int
	Limit      int
	HasNext    bool
	HasPrev    bool
	NextPage   *int
	PrevPage   *int
}
