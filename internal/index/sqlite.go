package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"patentrag/internal/domain"
)

const sqliteSchema = `
CREATE TABLE manifest (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    schema_version  INTEGER NOT NULL,
    embedder        TEXT NOT NULL,
    dimension       INTEGER NOT NULL,
    entry_count     INTEGER NOT NULL,
    created_at      TEXT NOT NULL,
    embedder_state  BLOB
);

CREATE TABLE entries (
    ordinal      INTEGER PRIMARY KEY,
    chunk_id     TEXT NOT NULL UNIQUE,
    document_id  TEXT NOT NULL,
    chunk_index  INTEGER NOT NULL,
    text         TEXT NOT NULL,
    source       TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    patent       TEXT NOT NULL DEFAULT '',
    vector       BLOB NOT NULL
);
`

func writeSQLite(path string, m manifest, entries []domain.IndexEntry) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)")
	if err != nil {
		return fmt.Errorf("open index db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO manifest (id, schema_version, embedder, dimension, entry_count, created_at, embedder_state) VALUES (1, ?, ?, ?, ?, ?, ?)`,
		m.SchemaVersion, m.Embedder, m.Dimension, m.Count, m.CreatedAt.Format(time.RFC3339Nano), m.EmbedderState,
	)
	if err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries (ordinal, chunk_id, document_id, chunk_index, text, source, title, patent, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		_, err := stmt.Exec(e.Ordinal, e.Chunk.ChunkID, e.Chunk.DocumentID, e.Chunk.Index, e.Chunk.Text, e.Source, e.Title, e.Patent, encodeVector(e.Vector))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Chunk.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return db.Close()
}

func readSQLite(ctx context.Context, path string) (manifest, []domain.IndexEntry, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return manifest{}, nil, fmt.Errorf("open index db: %w", err)
	}
	defer db.Close()

	var (
		m         manifest
		createdAt string
	)
	err = db.QueryRowContext(ctx,
		`SELECT schema_version, embedder, dimension, entry_count, created_at, embedder_state FROM manifest WHERE id = 1`,
	).Scan(&m.SchemaVersion, &m.Embedder, &m.Dimension, &m.Count, &createdAt, &m.EmbedderState)
	if err != nil {
		return manifest{}, nil, fmt.Errorf("read manifest: %w", err)
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return manifest{}, nil, fmt.Errorf("parse created_at: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT ordinal, chunk_id, document_id, chunk_index, text, source, title, patent, vector FROM entries ORDER BY ordinal`)
	if err != nil {
		return manifest{}, nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var (
			e    domain.IndexEntry
			blob []byte
		)
		if err := rows.Scan(&e.Ordinal, &e.Chunk.ChunkID, &e.Chunk.DocumentID, &e.Chunk.Index, &e.Chunk.Text, &e.Source, &e.Title, &e.Patent, &blob); err != nil {
			return manifest{}, nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Vector, err = decodeVector(blob); err != nil {
			return manifest{}, nil, fmt.Errorf("entry %s: %w", e.Chunk.ChunkID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return manifest{}, nil, fmt.Errorf("iterate entries: %w", err)
	}
	return m, entries, nil
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
