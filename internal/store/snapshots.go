package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/vtree/internal/codec"
	"github.com/roach88/vtree/internal/ir"
)

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Key             string
	Generation      uint64
	FormatVersion   int
	IdentityVersion string
	PageSeed        ir.PageSeed
	RootFingerprint string
	Size            int
	UpdatedAt       time.Time
}

// SaveSnapshot encodes doc and stores it under key, unless a snapshot with
// the same or a higher generation is already stored. Reports whether the
// row was written.
func (s *Store) SaveSnapshot(ctx context.Context, key string, generation uint64, doc *ir.Document) (bool, error) {
	data, err := codec.Encode(doc)
	if err != nil {
		return false, fmt.Errorf("save snapshot %s: %w", key, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(cache_key, generation, format_version, identity_version, page_seed, root_fingerprint, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			generation = excluded.generation,
			format_version = excluded.format_version,
			identity_version = excluded.identity_version,
			page_seed = excluded.page_seed,
			root_fingerprint = excluded.root_fingerprint,
			data = excluded.data,
			updated_at = excluded.updated_at
		WHERE excluded.generation > snapshots.generation
	`,
		key,
		int64(generation),
		int(codec.FormatVersion),
		ir.IdentityVersion,
		doc.Seed.String(),
		doc.Root.Fingerprint.String(),
		data,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("save snapshot %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return n > 0, nil
}

// LoadSnapshot returns the stored document for key and its generation.
//
// Returns ErrNotFound when no row exists. A row that fails to decode yields
// a *codec.DecodeError; the caller should delete it and re-index.
func (s *Store) LoadSnapshot(ctx context.Context, key string) (*ir.Document, uint64, error) {
	var gen int64
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT generation, data FROM snapshots WHERE cache_key = ?
	`, key).Scan(&gen, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	doc, err := codec.Decode(data)
	if err != nil {
		return nil, uint64(gen), fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return doc, uint64(gen), nil
}

// DeleteSnapshot removes the snapshot for key. Reports whether a row was
// deleted.
func (s *Store) DeleteSnapshot(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE cache_key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return n > 0, nil
}

// ListSnapshots describes every stored snapshot, ordered by key.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, generation, format_version, identity_version,
		       page_seed, root_fingerprint, length(data), updated_at
		FROM snapshots
		ORDER BY cache_key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var gen, updated int64
		var seed string
		if err := rows.Scan(
			&info.Key,
			&gen,
			&info.FormatVersion,
			&info.IdentityVersion,
			&seed,
			&info.RootFingerprint,
			&info.Size,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("list snapshots: scan: %w", err)
		}
		v, err := strconv.ParseUint(seed, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %s: page seed %q: %w", info.Key, seed, err)
		}
		info.Generation = uint64(gen)
		info.PageSeed = ir.PageSeed(v)
		info.UpdatedAt = time.UnixMilli(updated)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// PutRaw stores an already encoded payload without validating it. Used by
// import tooling and by tests that need a damaged row.
func (s *Store) PutRaw(ctx context.Context, key string, generation uint64, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots
		(cache_key, generation, format_version, identity_version, page_seed, root_fingerprint, data, updated_at)
		VALUES (?, ?, ?, ?, '0', '', ?, ?)
	`, key, int64(generation), int(codec.FormatVersion), ir.IdentityVersion, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put raw snapshot %s: %w", key, err)
	}
	return nil
}
