// Package store persists file chunks and their embeddings in SQLite with the
// sqlite-vec extension. The database runs in WAL mode with relaxed sync: the
// index is a derived cache rebuildable from source files, so readers must not
// block on writers but crash durability is not required.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// VectorStore is the persistence contract for indexed chunks. A path's chunk
// set is always replaced wholesale; no reader ever observes a partial set.
type VectorStore interface {
	// Upsert atomically replaces all stored chunks for path with the given
	// set, recording mtime as the path's watermark.
	Upsert(path string, mtime int64, chunks []Chunk) error
	// FindChunks returns the stored chunks for path ordered by chunk index,
	// or an empty slice if the path is unknown.
	FindChunks(path string) ([]Chunk, error)
	// StoredMtime returns the watermark for path; ok is false if unindexed.
	StoredMtime(path string) (mtime int64, ok bool, err error)
	// Search returns the k chunks nearest to the query embedding by cosine
	// similarity, best first.
	Search(queryEmbedding []float32, k int) ([]SearchResult, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// DeleteAll removes every file, chunk, and embedding.
	DeleteAll() error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements VectorStore backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(path string, mtime int64, chunks []Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fileID int64
	var totalBytes int64
	for _, c := range chunks {
		totalBytes += int64(len(c.Text))
	}

	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	switch {
	case err == nil:
		// Existing path: drop the old chunk set before inserting the new one.
		rows, err := tx.Query("SELECT id FROM chunks WHERE file_id = ?", fileID)
		if err != nil {
			return err
		}
		var chunkIDs []int64
		for rows.Next() {
			var cid int64
			if err := rows.Scan(&cid); err != nil {
				rows.Close()
				return err
			}
			chunkIDs = append(chunkIDs, cid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, cid := range chunkIDs {
			if _, err := tx.Exec("DELETE FROM vec_chunks WHERE chunk_id = ?", cid); err != nil {
				return err
			}
		}
		if _, err := tx.Exec("DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
			return err
		}
		_, err = tx.Exec(
			"UPDATE files SET mtime = ?, size_bytes = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?",
			mtime, totalBytes, fileID,
		)
		if err != nil {
			return err
		}

	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, mtime, size_bytes) VALUES (?, ?, ?)",
			path, mtime, totalBytes,
		)
		if err != nil {
			return err
		}
		fileID, err = res.LastInsertId()
		if err != nil {
			return err
		}

	default:
		return err
	}

	chunkStmt, err := tx.Prepare("INSERT INTO chunks (file_id, chunk_index, content) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.Prepare("INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, c := range chunks {
		res, err := chunkStmt.Exec(fileID, i, c.Text)
		if err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", i, path, err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if len(c.Embedding) == 0 {
			continue
		}
		blob, err := sqlite_vec.SerializeFloat32(c.Embedding)
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %d of %s: %w", i, path, err)
		}
		if _, err := vecStmt.Exec(chunkID, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %d of %s: %w", i, path, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) FindChunks(path string) ([]Chunk, error) {
	rows, err := s.db.Query(`
		SELECT c.chunk_index, c.content, COALESCE(vec_to_json(v.embedding), '[]')
		FROM chunks c
		JOIN files f ON f.id = c.file_id
		LEFT JOIN vec_chunks v ON v.chunk_id = c.id
		WHERE f.path = ?
		ORDER BY c.chunk_index
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var embJSON string
		if err := rows.Scan(&c.ChunkIndex, &c.Text, &embJSON); err != nil {
			return nil, err
		}
		c.Path = path
		if err := json.Unmarshal([]byte(embJSON), &c.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for %s[%d]: %w", path, c.ChunkIndex, err)
		}
		if len(c.Embedding) == 0 {
			c.Embedding = nil
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) StoredMtime(path string) (int64, bool, error) {
	var mtime int64
	err := s.db.QueryRow("SELECT mtime FROM files WHERE path = ?", path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return mtime, true, nil
}

func (s *SQLiteStore) Search(queryEmbedding []float32, k int) ([]SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT f.path, c.chunk_index, c.content, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN files f ON f.id = c.file_id
		WHERE v.embedding MATCH ?
		ORDER BY v.distance
		LIMIT ?
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.Chunk.Path, &r.Chunk.ChunkIndex, &r.Chunk.Text, &distance); err != nil {
			return nil, err
		}
		// vec0 cosine distance is 1 - similarity.
		r.Similarity = 1 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) DeleteAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM vec_chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
