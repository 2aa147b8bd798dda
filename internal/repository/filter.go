package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/google/uuid"
)

// columnKind tells the SQL builder how to bind a filter value and which
// comparisons a column supports.
type columnKind int

const (
	// kindDocument columns can be selected but not filtered or sorted
	// (nested objects, likes).
	kindDocument columnKind = iota
	kindText
	kindUUID
	kindInteger
	kindNumeric
	kindBool
	kindTime
	// kindIntArray columns match when any element satisfies the comparison.
	kindIntArray
)

// column maps one query field onto a SQL expression.
type column struct {
	expr string
	kind columnKind
}

// sqlArgs collects positional parameters while a statement is built.
type sqlArgs struct {
	values []any
}

// add appends v and returns its placeholder.
func (a *sqlArgs) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

var comparisonSQL = map[query.ComparisonOp]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// buildWhere renders criteria as a WHERE clause (without the keyword).
// An empty string means every row matches.
func buildWhere(columns map[string]column, criteria query.Criteria, args *sqlArgs) (string, error) {
	var conds []string

	for _, clause := range criteria.Filters {
		col, ok := columns[clause.Field]
		if !ok {
			return "", query.NewParseError(clause.Field, "unknown field")
		}
		if col.kind == kindDocument {
			return "", query.NewParseError(clause.Field, "field cannot be filtered")
		}

		cond, err := buildCondition(col, clause, args)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}

	if criteria.Geo != nil {
		conds = append(conds, buildGeoCondition(*criteria.Geo, args))
	}

	return strings.Join(conds, " AND "), nil
}

func buildCondition(col column, clause query.FilterClause, args *sqlArgs) (string, error) {
	if clause.Operator == query.OpIn {
		items, ok := clause.Value.([]any)
		if !ok {
			return "", query.NewParseError(clause.Field, "in requires a list of values")
		}

		list, err := bindList(col.kind, clause.Field, items)
		if err != nil {
			return "", err
		}

		if col.kind == kindIntArray {
			return fmt.Sprintf("%s && %s::int[]", col.expr, args.add(list)), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", col.expr, args.add(list)), nil
	}

	op, ok := comparisonSQL[clause.Operator]
	if !ok {
		return "", query.NewParseError(clause.Field, fmt.Sprintf("unsupported operator %q", clause.Operator))
	}

	if col.kind == kindBool && op != "=" {
		return "", query.NewParseError(clause.Field, "boolean fields only support equality")
	}

	value, err := bindScalar(col.kind, clause.Field, clause.Value)
	if err != nil {
		return "", err
	}

	if col.kind == kindIntArray {
		if op == "=" {
			return fmt.Sprintf("%s = ANY(%s)", args.add(value), col.expr), nil
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE elem %s %s)", col.expr, op, args.add(value)), nil
	}

	return fmt.Sprintf("%s %s %s", col.expr, op, args.add(value)), nil
}

// buildGeoCondition keeps rows whose location lies within the constraint's
// radius, measured as the central angle (radians) between the two points.
func buildGeoCondition(geo query.GeoConstraint, args *sqlArgs) string {
	lon := args.add(geo.Center.Longitude)
	lat := args.add(geo.Center.Latitude)
	radius := args.add(geo.Radius)

	return fmt.Sprintf(
		"acos(least(1.0, greatest(-1.0, "+
			"sin(radians(location_lat)) * sin(radians(%[2]s::float8)) + "+
			"cos(radians(location_lat)) * cos(radians(%[2]s::float8)) * cos(radians(location_lon) - radians(%[1]s::float8))"+
			"))) <= %[3]s::float8",
		lon, lat, radius,
	)
}

// documentKeys maps query field names to the document key they are
// rendered under when the two differ.
var documentKeys = map[string]string{
	"createdAt": "date",
}

// documentProjection rewrites a projection into document keys.
func documentProjection(p query.Projection) query.Projection {
	if p.Empty() {
		return p
	}
	out := make(query.Projection, len(p))
	for i, field := range p {
		if key, ok := documentKeys[field]; ok {
			field = key
		}
		out[i] = field
	}
	return out
}

// buildOrderBy renders a sort spec as an ORDER BY clause (without the
// keyword). id is appended so paging is stable across equal sort keys.
func buildOrderBy(columns map[string]column, spec query.SortSpec) (string, error) {
	parts := make([]string, 0, len(spec)+1)

	for _, s := range spec {
		col, ok := columns[s.Field]
		if !ok {
			return "", query.NewParseError(s.Field, "unknown sort field")
		}
		if col.kind == kindDocument || col.kind == kindIntArray {
			return "", query.NewParseError(s.Field, "field cannot be sorted")
		}

		dir := "ASC"
		if s.Direction == query.Desc {
			dir = "DESC"
		}
		parts = append(parts, col.expr+" "+dir)
	}

	parts = append(parts, "id ASC")
	return strings.Join(parts, ", "), nil
}

func bindList(kind columnKind, field string, items []any) (any, error) {
	switch kind {
	case kindInteger, kindIntArray:
		out := make([]int64, 0, len(items))
		for _, it := range items {
			v, err := bindScalar(kindInteger, field, it)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(int64))
		}
		return out, nil

	case kindNumeric:
		out := make([]float64, 0, len(items))
		for _, it := range items {
			v, err := bindScalar(kind, field, it)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(float64))
		}
		return out, nil

	case kindTime:
		out := make([]time.Time, 0, len(items))
		for _, it := range items {
			v, err := bindScalar(kind, field, it)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(time.Time))
		}
		return out, nil

	case kindBool:
		out := make([]bool, 0, len(items))
		for _, it := range items {
			v, err := bindScalar(kind, field, it)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(bool))
		}
		return out, nil

	default:
		// text and uuid columns compare as text
		out := make([]string, 0, len(items))
		for _, it := range items {
			v, err := bindScalar(kind, field, it)
			if err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprint(v))
		}
		return out, nil
	}
}

// bindScalar converts a coerced query value into the Go type pgx should send
// for the column kind.
func bindScalar(kind columnKind, field string, value any) (any, error) {
	switch kind {
	case kindText:
		switch v := value.(type) {
		case string:
			return v, nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}

	case kindUUID:
		if s, ok := value.(string); ok {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, query.NewParseError(field, "must be a valid UUID")
			}
			return id.String(), nil
		}
		return nil, query.NewParseError(field, "must be a valid UUID")

	case kindInteger, kindIntArray:
		switch v := value.(type) {
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
		return nil, query.NewParseError(field, "must be an integer")

	case kindNumeric:
		switch v := value.(type) {
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		}
		return nil, query.NewParseError(field, "must be a number")

	case kindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, query.NewParseError(field, "must be true or false")

	case kindTime:
		if s, ok := value.(string); ok {
			for _, layout := range []string{time.RFC3339, time.DateOnly} {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), nil
				}
			}
		}
		return nil, query.NewParseError(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}

	return nil, query.NewParseError(field, "unsupported value")
}
