package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/persist"
)

var ErrNoDocument = errors.New("document id required")

const schema = `
CREATE TABLE IF NOT EXISTS shapes (
	document_id text NOT NULL,
	id bigint NOT NULL,
	type text NOT NULL,
	properties jsonb NOT NULL,
	ord bigint NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (document_id, id)
)`

// New shapes go after every stored one. Existing rows keep their ord.
const upsertShape = `
INSERT INTO shapes (document_id, id, type, properties, ord)
VALUES ($1, $2, $3, $4,
	(SELECT COALESCE(MAX(ord), 0) + 1 FROM shapes WHERE document_id = $1))
ON CONFLICT (document_id, id) DO UPDATE
SET type = EXCLUDED.type, properties = EXCLUDED.properties, updated_at = now()`

// ShapeStore keeps the shapes of one document in the shapes table.
type ShapeStore struct {
	pool       *pgxpool.Pool
	documentID string
}

var _ persist.Adapter = (*ShapeStore)(nil)

func NewShapeStore(pool *pgxpool.Pool, documentID string) *ShapeStore {
	return &ShapeStore{pool: pool, documentID: documentID}
}

func (s *ShapeStore) Init(ctx context.Context) error {
	if s.documentID == "" {
		return ErrNoDocument
	}
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create shapes table: %w", err)
	}
	return nil
}

func (s *ShapeStore) Load(ctx context.Context) ([]document.Shape, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, properties FROM shapes WHERE document_id = $1 ORDER BY ord, id`,
		s.documentID)
	if err != nil {
		return nil, fmt.Errorf("load shapes: %w", err)
	}
	shapes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (document.Shape, error) {
		var (
			sh  document.Shape
			typ string
			raw []byte
		)
		if err := row.Scan(&sh.ID, &typ, &raw); err != nil {
			return sh, err
		}
		sh.Type = document.Type(typ)
		if err := json.Unmarshal(raw, &sh.Props); err != nil {
			return sh, fmt.Errorf("decode shape %d: %w", sh.ID, err)
		}
		return sh, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load shapes: %w", err)
	}
	return shapes, nil
}

func (s *ShapeStore) Save(ctx context.Context, sh document.Shape) error {
	props, err := json.Marshal(sh.Props)
	if err != nil {
		return fmt.Errorf("encode shape %d: %w", sh.ID, err)
	}
	if _, err := s.pool.Exec(ctx, upsertShape, s.documentID, sh.ID, string(sh.Type), props); err != nil {
		return fmt.Errorf("save shape %d: %w", sh.ID, err)
	}
	return nil
}

// SaveMany writes shapes in one transaction, in slice order.
func (s *ShapeStore) SaveMany(ctx context.Context, shapes []document.Shape) error {
	if len(shapes) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, sh := range shapes {
			props, err := json.Marshal(sh.Props)
			if err != nil {
				return fmt.Errorf("encode shape %d: %w", sh.ID, err)
			}
			if _, err := tx.Exec(ctx, upsertShape, s.documentID, sh.ID, string(sh.Type), props); err != nil {
				return fmt.Errorf("save shape %d: %w", sh.ID, err)
			}
		}
		return nil
	})
}

func (s *ShapeStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM shapes WHERE document_id = $1 AND id = $2`, s.documentID, id); err != nil {
		return fmt.Errorf("delete shape %d: %w", id, err)
	}
	return nil
}

func (s *ShapeStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM shapes WHERE document_id = $1`, s.documentID); err != nil {
		return fmt.Errorf("delete shapes: %w", err)
	}
	return nil
}

// Documents lists the ids of documents that have at least one shape.
func Documents(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT document_id FROM shapes ORDER BY document_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}
