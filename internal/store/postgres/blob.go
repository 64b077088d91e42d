package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/medrec/clinic-api/internal/store"
)

type blobStore struct {
	db *sqlx.DB
}

func (b *blobStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	query := `INSERT INTO blobs (id, content) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`
	if _, err := b.db.ExecContext(ctx, query, id, data); err != nil {
		return 0, fmt.Errorf("put blob: %w", err)
	}
	return int64(len(data)), nil
}

func (b *blobStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoDocuments
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *blobStore) Delete(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNoDocuments
	}
	return nil
}

func (b *blobStore) Size(ctx context.Context, id string) (int64, error) {
	var size int64
	err := b.db.QueryRowContext(ctx, `SELECT length(content) FROM blobs WHERE id = $1`, id).Scan(&size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNoDocuments
		}
		return 0, fmt.Errorf("blob size: %w", err)
	}
	return size, nil
}
