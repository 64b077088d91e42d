package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/store"
)

type collection struct {
	db    *sqlx.DB
	table string
}

// buildWhere renders a filter as a containment match plus range
// clauses. Returns the WHERE text (without the keyword) and args.
func buildWhere(filter model.Document, argOffset int) (string, []interface{}, error) {
	exact := make(model.Document)
	var clauses []string
	var args []interface{}
	n := argOffset

	for k, v := range filter {
		if r, ok := v.(store.Range); ok {
			clauses = append(clauses, fmt.Sprintf("(doc->>'%s')::bigint BETWEEN $%d AND $%d", k, n+1, n+2))
			args = append(args, r.From, r.To)
			n += 2
			continue
		}
		exact[k] = v
	}

	if len(exact) > 0 {
		payload, err := json.Marshal(exact)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", n+1))
		args = append(args, string(payload))
	}

	if len(clauses) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (c *collection) InsertOne(ctx context.Context, doc model.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	id, _ := doc[model.FieldID].(string)
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, c.table)
	if _, err := c.db.ExecContext(ctx, query, id, string(payload)); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", c.table, err)
	}
	return nil
}

func (c *collection) FindOne(ctx context.Context, filter model.Document) (model.Document, error) {
	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s LIMIT 1`, c.table, where)

	var raw []byte
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoDocuments
		}
		return nil, fmt.Errorf("find one in %s: %w", c.table, err)
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *collection) Find(ctx context.Context, filter model.Document, opts store.FindOptions) ([]model.Document, error) {
	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s`, c.table, where)
	if opts.SortField != "" {
		dir := "DESC"
		if opts.Ascending {
			dir = "ASC"
		}
		query += fmt.Sprintf(` ORDER BY (doc->>'%s')::bigint %s`, opts.SortField, dir)
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}
	if opts.Skip > 0 {
		query += fmt.Sprintf(` OFFSET %d`, opts.Skip)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.table, err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc model.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (c *collection) UpdateOne(ctx context.Context, filter model.Document, set model.Document) error {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = doc || $1::jsonb
		WHERE id IN (SELECT id FROM %s WHERE %s LIMIT 1)`, c.table, c.table, where)
	res, err := c.db.ExecContext(ctx, query, append([]interface{}{string(payload)}, args...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("update in %s: %w", c.table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNoDocuments
	}
	return nil
}

func (c *collection) DeleteOne(ctx context.Context, filter model.Document) error {
	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE %s LIMIT 1)`, c.table, c.table, where)
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", c.table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNoDocuments
	}
	return nil
}

func (c *collection) DeleteMany(ctx context.Context, filter model.Document) (int64, error) {
	where, args, err := buildWhere(filter, 0)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s`, c.table, where)
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete many from %s: %w", c.table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *collection) EstimatedCount(ctx context.Context) (int64, error) {
	var estimate int64
	err := c.db.QueryRowContext(ctx,
		`SELECT reltuples::bigint FROM pg_class WHERE relname = $1`, c.table).Scan(&estimate)
	if err != nil || estimate < 0 {
		// Planner statistics may be missing right after migration.
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)
		if err := c.db.QueryRowContext(ctx, query).Scan(&estimate); err != nil {
			return 0, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return estimate, nil
}
