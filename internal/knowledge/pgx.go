package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGXQuerier implements Querier on a pgx connection pool.
type PGXQuerier struct {
	pool *pgxpool.Pool
}

// NewPGXQuerier wraps pool. The pool's lifecycle is owned by the caller.
func NewPGXQuerier(pool *pgxpool.Pool) *PGXQuerier {
	return &PGXQuerier{pool: pool}
}

func (q *PGXQuerier) UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error {
	const query = `
		INSERT INTO knowledge_documents (id, content_id, heading, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content_id = EXCLUDED.content_id,
			heading    = EXCLUDED.heading,
			content    = EXCLUDED.content,
			embedding  = EXCLUDED.embedding`

	if _, err := q.pool.Exec(ctx, query,
		doc.ID, doc.ContentID, doc.Heading, doc.Content, embedding); err != nil {
		return fmt.Errorf("upsert knowledge document: %w", err)
	}
	return nil
}

func (q *PGXQuerier) SearchDocuments(ctx context.Context, embedding pgvector.Vector, contentID string, limit int32) ([]Result, error) {
	// 1 - cosine distance gives similarity in [0, 1]. An empty
	// contentID disables the chapter filter.
	const query = `
		SELECT id, content_id, heading, content, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM knowledge_documents
		WHERE $2 = '' OR content_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := q.pool.Query(ctx, query, embedding, contentID, limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var similarity float64
		if err := rows.Scan(
			&r.Document.ID,
			&r.Document.ContentID,
			&r.Document.Heading,
			&r.Document.Content,
			&r.Document.CreatedAt,
			&similarity,
		); err != nil {
			return nil, fmt.Errorf("scan knowledge document: %w", err)
		}
		r.Similarity = float32(similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge documents: %w", err)
	}
	return results, nil
}

func (q *PGXQuerier) DeleteByContentID(ctx context.Context, contentID string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM knowledge_documents WHERE content_id = $1`, contentID)
	if err != nil {
		return 0, fmt.Errorf("delete knowledge documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PGXQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM knowledge_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count knowledge documents: %w", err)
	}
	return n, nil
}
