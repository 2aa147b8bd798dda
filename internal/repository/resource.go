package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// resource is the storage shared by every listable record type. It serves
// query.Repository for the list endpoints and the owner/like operations
// both resources have.
//
// T is the record model; scan reads one row selected with selectList.
type resource[T any] struct {
	pool *pgxpool.Pool

	// table holds the records, likeTable (likeKey, user_id) their likes.
	table     string
	likeTable string
	likeKey   string

	columns    map[string]column
	selectList string
	scan       func(row pgx.Row) (T, error)
}

// Fields returns every field name accepted by filters, sort and select.
func (r *resource[T]) Fields() query.FieldSet {
	names := make([]string, 0, len(r.columns))
	for name := range r.columns {
		names = append(names, name)
	}
	return query.NewFieldSet(names...)
}

// Count returns the number of rows matching criteria, or all rows when nil.
func (r *resource[T]) Count(ctx context.Context, criteria *query.Criteria) (int, error) {
	args := &sqlArgs{}
	sql := "SELECT count(*) FROM " + r.table

	if criteria != nil {
		where, err := buildWhere(r.columns, *criteria, args)
		if err != nil {
			return 0, err
		}
		if where != "" {
			sql += " WHERE " + where
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, sql, args.values...).Scan(&total); err != nil {
		return 0, &query.RepositoryError{Op: "count " + r.table, Err: err}
	}

	return total, nil
}

// Find returns one page of records as documents, projected as requested.
func (r *resource[T]) Find(ctx context.Context, params query.FindParams) ([]query.Document, error) {
	args := &sqlArgs{}

	where, err := buildWhere(r.columns, params.Criteria, args)
	if err != nil {
		return nil, err
	}

	orderBy, err := buildOrderBy(r.columns, params.Sort)
	if err != nil {
		return nil, err
	}

	sql := "SELECT " + r.selectList + " FROM " + r.table
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " ORDER BY " + orderBy
	sql += fmt.Sprintf(" OFFSET %s LIMIT %s", args.add(params.Skip), args.add(params.Limit))

	rows, err := r.pool.Query(ctx, sql, args.values...)
	if err != nil {
		return nil, &query.RepositoryError{Op: "find " + r.table, Err: err}
	}
	defer rows.Close()

	projection := documentProjection(params.Projection)

	docs := make([]query.Document, 0, min(params.Limit, query.MaxLimit))
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, &query.RepositoryError{Op: "scan " + r.table, Err: err}
		}

		doc, err := toDocument(record)
		if err != nil {
			return nil, &query.RepositoryError{Op: "encode " + r.table, Err: err}
		}

		docs = append(docs, projection.Apply(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, &query.RepositoryError{Op: "find " + r.table, Err: err}
	}

	return docs, nil
}

// findOne returns the single record matching where.
// A missing row is reported as pgx.ErrNoRows tagged with the table name.
func (r *resource[T]) findOne(ctx context.Context, where string, args ...any) (*T, error) {
	sql := "SELECT " + r.selectList + " FROM " + r.table + " WHERE " + where

	record, err := r.scan(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(r.table, err)
	}

	return &record, nil
}

// FindByUser returns the record owned by userID.
func (r *resource[T]) FindByUser(ctx context.Context, userID string) (*T, error) {
	return r.findOne(ctx, "user_id = $1", userID)
}

// FindByID returns the record with the given id.
func (r *resource[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return r.findOne(ctx, "id = $1", id)
}

// DeleteByUser removes the record owned by userID together with its likes.
func (r *resource[T]) DeleteByUser(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM "+r.table+" WHERE user_id = $1", userID)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag, r.table)
}

// Like records userID liking the record id. It reports false when the like
// already existed.
func (r *resource[T]) Like(ctx context.Context, id, userID string) (bool, error) {
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		r.likeTable, r.likeKey,
	)

	tag, err := r.pool.Exec(ctx, sql, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Unlike removes userID's like from the record id. It reports false when
// there was nothing to remove.
func (r *resource[T]) Unlike(ctx context.Context, id, userID string) (bool, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND user_id = $2", r.likeTable, r.likeKey)

	tag, err := r.pool.Exec(ctx, sql, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// likesSubquery selects the record's liking user ids, newest first.
func likesSubquery(likeTable, likeKey, table string) string {
	return fmt.Sprintf(
		"COALESCE((SELECT array_agg(l.user_id ORDER BY l.created_at DESC) FROM %s l WHERE l.%s = %s.id), '{}')",
		likeTable, likeKey, table,
	)
}

// notFound tags pgx.ErrNoRows with the table so sqlerr can name the entity.
func notFound(table string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("table:%s: %w", table, pgx.ErrNoRows)
	}
	return err
}

func checkRowsAffected(tag pgconn.CommandTag, table string) error {
	if tag.RowsAffected() == 0 {
		return notFound(table, pgx.ErrNoRows)
	}
	return nil
}

// toDocument renders a record through its JSON tags so documents have the
// same shape as single-record responses.
func toDocument(record any) (query.Document, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var doc query.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
