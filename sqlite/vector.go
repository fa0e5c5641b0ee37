package sqlite

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var (
	_ docchat.VectorIndexProvider = (*VectorStore)(nil)
	_ docchat.VectorIndex         = (*VectorIndex)(nil)
	_ docchat.ScopedDeleter       = (*VectorIndex)(nil)
)

// VectorStore hosts any number of named vector indexes in one database.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// OpenIndex returns the index named by creds.IndexName. Indexes exist
// implicitly; the API key and environment are not used.
func (s *VectorStore) OpenIndex(_ context.Context, creds docchat.VectorIndexCredentials) (docchat.VectorIndex, error) {
	return s.Index(creds)
}

// Index is like OpenIndex but returns the concrete type.
func (s *VectorStore) Index(creds docchat.VectorIndexCredentials) (*VectorIndex, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &VectorIndex{db: s.db, name: creds.IndexName}, nil
}

// VectorIndex is a brute-force cosine similarity index stored in SQLite.
// Every query scans the matching rows, which is fine for the few thousand
// pages of a documentation site.
type VectorIndex struct {
	db   *DB
	name string
}

// DescribeStats counts the records matching filter.
func (idx *VectorIndex) DescribeStats(ctx context.Context, filter docchat.VectorFilter) (*docchat.IndexStats, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT COUNT(*), COALESCE(MAX(dims), 0) FROM vectors WHERE index_name = ?`)
	args := []any{idx.name}
	appendFilter(&query, &args, filter)

	var stats docchat.IndexStats
	if err := idx.db.QueryRowContext(ctx, query.String(), args...).Scan(&stats.RecordCount, &stats.Dimension); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteAll removes every record in the index, whatever its project.
func (idx *VectorIndex) DeleteAll(ctx context.Context) error {
	_, err := idx.db.ExecContext(ctx, `DELETE FROM vectors WHERE index_name = ?`, idx.name)
	return err
}

// DeleteWhere removes the records matching filter.
func (idx *VectorIndex) DeleteWhere(ctx context.Context, filter docchat.VectorFilter) error {
	if filter.Project == "" {
		return docchat.Errorf(docchat.EINVALID, "scoped delete requires a project")
	}
	_, err := idx.db.ExecContext(ctx, `DELETE FROM vectors WHERE index_name = ? AND project = ?`, idx.name, filter.Project)
	return err
}

// Upsert inserts or replaces records by ID in a single transaction.
func (idx *VectorIndex) Upsert(ctx context.Context, records []docchat.VectorRecord) error {
	for _, r := range records {
		if r.ID == "" {
			return docchat.Errorf(docchat.EINVALID, "vector record ID required")
		}
		if len(r.Values) == 0 {
			return docchat.Errorf(docchat.EINVALID, "vector record %q has no values", r.ID)
		}
	}

	tx, err := idx.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (index_name, id, project, url, text, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_name, id) DO UPDATE SET
			project = excluded.project,
			url = excluded.url,
			text = excluded.text,
			dims = excluded.dims,
			embedding = excluded.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, idx.name, r.ID, r.Metadata.Project, r.Metadata.URL, r.Text,
			len(r.Values), encodeVector(r.Values)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Query returns up to k records most similar to vector, best first.
// Records whose dimension differs from the query are skipped.
func (idx *VectorIndex) Query(ctx context.Context, vector []float32, k int, filter docchat.VectorFilter) ([]docchat.VectorMatch, error) {
	if k <= 0 {
		return nil, docchat.Errorf(docchat.EINVALID, "k must be positive")
	}
	if len(vector) == 0 {
		return nil, docchat.Errorf(docchat.EINVALID, "query vector is empty")
	}

	query := strings.Builder{}
	query.WriteString(`SELECT id, project, url, text, embedding FROM vectors WHERE index_name = ? AND dims = ?`)
	args := []any{idx.name, len(vector)}
	appendFilter(&query, &args, filter)

	rows, err := idx.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []docchat.VectorMatch
	for rows.Next() {
		var m docchat.VectorMatch
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Metadata.Project, &m.Metadata.URL, &m.Text, &blob); err != nil {
			return nil, err
		}
		values, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		m.Score = cosine(vector, values)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b docchat.VectorMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func appendFilter(query *strings.Builder, args *[]any, filter docchat.VectorFilter) {
	if filter.Project != "" {
		query.WriteString(" AND project = ?")
		*args = append(*args, filter.Project)
	}
}
