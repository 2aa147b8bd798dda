package query

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Reserved parameter names shared by every resource.
const (
	ParamSelect = "select"
	ParamSort   = "sort"
	ParamPage   = "page"
	ParamLimit  = "limit"
)

// Options configures a Translator for one resource.
type Options struct {
	// ReservedKeys are extra parameter names that are never filters.
	ReservedKeys []string

	// Geocoder enables geo search. LocationKey and RadiusKey name the
	// parameters carrying the place and the radius in km (default "city" and
	// "radius"). Without a Geocoder those names are ordinary filters.
	Geocoder    Geocoder
	LocationKey string
	RadiusKey   string

	// Fields restricts filter, sort and select to known fields. nil accepts any.
	Fields FieldSet

	// DefaultLimit overrides DefaultLimit when > 0.
	DefaultLimit int

	// MaxLimit overrides MaxLimit when > 0. Larger limits are clamped to it.
	MaxLimit int

	// DefaultRadiusKm overrides DefaultRadiusKm when > 0.
	DefaultRadiusKm float64

	// CountFiltered makes Execute count only records matching the plan.
	// When false the total is the size of the whole resource.
	CountFiltered bool
}

// Translator parses list parameters into plans and executes them.
// It holds no mutable state and is safe for concurrent use.
type Translator struct {
	opts     Options
	reserved map[string]struct{}
}

// NewTranslator builds a Translator for one resource.
func NewTranslator(opts Options) *Translator {
	if opts.Geocoder != nil {
		if opts.LocationKey == "" {
			opts.LocationKey = "city"
		}
		if opts.RadiusKey == "" {
			opts.RadiusKey = "radius"
		}
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	opts.DefaultLimit = min(opts.DefaultLimit, opts.MaxLimit)
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = DefaultRadiusKm
	}

	reserved := map[string]struct{}{
		ParamSelect: {},
		ParamSort:   {},
		ParamPage:   {},
		ParamLimit:  {},
	}
	for _, k := range opts.ReservedKeys {
		reserved[k] = struct{}{}
	}
	if opts.Geocoder != nil {
		reserved[opts.LocationKey] = struct{}{}
		reserved[opts.RadiusKey] = struct{}{}
	}

	return &Translator{opts: opts, reserved: reserved}
}

// Parse builds a Plan from raw parameters. It fails with *ParseError for
// malformed filter, select, sort or radius values and with *GeocodingError
// when the place name cannot be resolved.
func (t *Translator) Parse(ctx context.Context, raw RawParameters) (Plan, error) {
	var plan Plan

	filters, err := t.parseFilters(raw)
	if err != nil {
		return Plan{}, err
	}
	plan.filters = filters

	if plan.projection, err = t.parseSelect(raw); err != nil {
		return Plan{}, err
	}

	if plan.sort, err = t.parseSort(raw); err != nil {
		return Plan{}, err
	}

	limit := min(positiveOr(first(raw, ParamLimit), t.opts.DefaultLimit), t.opts.MaxLimit)
	plan.page = PageRequest{
		Page:  min(positiveOr(first(raw, ParamPage), DefaultPage), MaxPage(limit)),
		Limit: limit,
	}

	if plan.geo, err = t.parseGeo(ctx, raw); err != nil {
		return Plan{}, err
	}

	return plan, nil
}

// Execute fetches the plan's page and total count from repo. Both reads run
// concurrently; any error fails the whole call and no result is returned.
func (t *Translator) Execute(ctx context.Context, plan Plan, repo Repository) (*PageResult, error) {
	page := plan.Page()
	startIndex := page.StartIndex()
	endIndex := page.EndIndex()

	var countCriteria *Criteria
	if t.opts.CountFiltered {
		c := plan.Criteria()
		countCriteria = &c
	}

	var (
		total int
		items []Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := repo.Count(gctx, countCriteria)
		total = n
		return err
	})
	g.Go(func() error {
		docs, err := repo.Find(gctx, FindParams{
			Criteria:   plan.Criteria(),
			Projection: plan.Projection(),
			Sort:       plan.Sort(),
			Skip:       startIndex,
			Limit:      page.Limit,
		})
		items = docs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []Document{}
	}

	result := &PageResult{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Limit:      page.Limit,
	}

	if endIndex < total {
		next := page.Page + 1
		result.HasNext = true
		result.NextPage = &next
	}

	if startIndex > 0 {
		prev := page.Page - 1
		result.HasPrev = true
		result.PrevPage = &prev
	}

	return result, nil
}

// parseFilters turns every non-reserved key into filter clauses, in key order.
func (t *Translator) parseFilters(raw RawParameters) ([]FilterClause, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := t.reserved[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]FilterClause, 0, len(keys))
	for _, key := range keys {
		field, op, err := splitOperatorKey(key)
		if err != nil {
			return nil, err
		}

		if !t.opts.Fields.Has(field) {
			return nil, parseErrorf(key, "unknown field %q", field)
		}

		value, err := clauseValue(key, op, raw[key])
		if err != nil {
			return nil, err
		}

		filters = append(filters, FilterClause{Field: field, Operator: op, Value: value})
	}

	return filters, nil
}

// splitOperatorKey reads "field" or "field[op]". The operator must be one of
// the whole tokens gt, gte, lt, lte, in.
func splitOperatorKey(key string) (string, ComparisonOp, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsAny(key, "]") || key == "" {
			return "", "", parseErrorf(key, "malformed field name")
		}
		return key, OpEq, nil
	}

	field := key[:open]
	if field == "" || !strings.HasSuffix(key, "]") {
		return "", "", parseErrorf(key, "malformed operator key")
	}

	token := key[open+1 : len(key)-1]
	if strings.ContainsAny(token, "[]") {
		return "", "", parseErrorf(key, "nested operators are not supported")
	}

	op, ok := operatorTokens[token]
	if !ok {
		return "", "", parseErrorf(key, "unsupported operator %q", token)
	}

	return field, op, nil
}

func clauseValue(key string, op ComparisonOp, values []string) (any, error) {
	if op == OpIn {
		var items []any
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				items = append(items, coerceScalar(part))
			}
		}
		if len(items) == 0 {
			return nil, parseErrorf(key, "in requires at least one value")
		}
		return items, nil
	}

	if len(values) != 1 {
		return nil, parseErrorf(key, "expected a single value, got %d", len(values))
	}

	return coerceScalar(values[0]), nil
}

var (
	integerPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	decimalPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)\.[0-9]+$`)
)

// coerceScalar gives query-string values their natural type. Values with
// leading zeros ("0123") stay strings.
func coerceScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	if integerPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return s
	}

	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

func (t *Translator) parseSelect(raw RawParameters) (Projection, error) {
	value, err := single(raw, ParamSelect)
	if err != nil || value == "" {
		return nil, err
	}

	var projection Projection
	seen := map[string]struct{}{}
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		if field != IDField && !t.opts.Fields.Has(field) {
			return nil, parseErrorf(ParamSelect, "unknown field %q", field)
		}
		seen[field] = struct{}{}
		projection = append(projection, field)
	}

	return projection, nil
}

func (t *Translator) parseSort(raw RawParameters) (SortSpec, error) {
	value, err := single(raw, ParamSort)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return DefaultSort(), nil
	}

	var spec SortSpec
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		dir := Asc
		if strings.HasPrefix(field, "-") {
			dir = Desc
			field = field[1:]
		}
		if field == "" {
			return nil, parseErrorf(ParamSort, "missing field after '-'")
		}
		if !t.opts.Fields.Has(field) {
			return nil, parseErrorf(ParamSort, "unknown field %q", field)
		}

		spec = append(spec, SortField{Field: field, Direction: dir})
	}

	if len(spec) == 0 {
		return DefaultSort(), nil
	}
	return spec, nil
}

func (t *Translator) parseGeo(ctx context.Context, raw RawParameters) (*GeoConstraint, error) {
	if t.opts.Geocoder == nil {
		return nil, nil
	}

	place, err := single(raw, t.opts.LocationKey)
	if err != nil {
		return nil, err
	}
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, nil
	}

	radius, err := single(raw, t.opts.RadiusKey)
	if err != nil {
		return nil, err
	}

	radiusKm := t.opts.DefaultRadiusKm
	if radius != "" {
		radiusKm, err = strconv.ParseFloat(radius, 64)
		if err != nil || radiusKm <= 0 {
			return nil, parseErrorf(t.opts.RadiusKey, "must be a positive number of kilometres")
		}
	}

	center, err := t.opts.Geocoder.Resolve(ctx, place)
	if err != nil {
		var gerr *GeocodingError
		if errors.As(err, &gerr) {
			return nil, gerr
		}
		return nil, &GeocodingError{Place: place, Err: err}
	}

	geo := NewGeoConstraint(center, radiusKm)
	return &geo, nil
}

// single returns the only value of key, "" when absent, or a ParseError when
// the key was repeated.
func single(raw RawParameters, key string) (string, error) {
	values := raw[key]
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", parseErrorf(key, "expected a single value, got %d", len(values))
	}
}

func first(raw RawParameters, key string) string {
	if values := raw[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// positiveOr parses s as a positive integer, falling back to def.
func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
