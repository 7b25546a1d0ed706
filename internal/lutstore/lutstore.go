// Package lutstore caches precomputed scan conversion lookup tables in SQLite.
//
// A Correspondence depends only on the source frame shape, the sector
// geometry, the control grid and the weighting, so those are hashed into a
// key. Snapshots are stored as gob+gzip blobs; the newest snapshot for a key
// wins.
package lutstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/scanconv"
	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no snapshot matches a key or ID.
var ErrNotFound = errors.New("lut snapshot not found")

// Snapshot describes one stored lookup table without its blob.
type Snapshot struct {
	SnapshotID   string
	Key          string
	SourceRows   int
	SourceCols   int
	Geometry     scanconv.SectorGeometry
	Segmentation scanconv.GridSegmentation
	Weighting    interp.Weighting
	Points       int
	Degenerate   int
	BlobBytes    int
	CreatedAtNs  int64
}

// Store persists lookup tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite file at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open lut store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key identifies the lookup table for a frame shape, geometry, control grid
// and weighting. Floats are formatted exactly, so keys only match for
// bit-identical parameters.
func Key(rows, cols int, g scanconv.SectorGeometry, seg scanconv.GridSegmentation, w interp.Weighting) string {
	if w == "" {
		w = interp.WeightDistance
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	h := sha256.New()
	fmt.Fprintf(h, "v1|%dx%d|%s,%s,%s,%s|%dx%d|%s",
		rows, cols,
		f(g.InitialRadius), f(g.FinalRadius), f(g.InitialAngle), f(g.FinalAngle),
		seg.YSeg, seg.XSeg, w)
	return hex.EncodeToString(h.Sum(nil))
}

// Put stores c as a new snapshot and returns its ID.
func (s *Store) Put(ctx context.Context, c *interp.Correspondence) (string, error) {
	if c == nil || c.Canvas == nil {
		return "", fmt.Errorf("put: nil correspondence")
	}
	blob, err := encodeCorrespondence(c)
	if err != nil {
		return "", fmt.Errorf("encode correspondence: %w", err)
	}

	id := uuid.New().String()
	key := Key(c.SourceRows, c.SourceCols, c.Geometry, c.Segmentation, c.Weighting)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lut_snapshots (
			snapshot_id, lut_key, source_rows, source_cols,
			initial_radius, final_radius, initial_angle, final_angle,
			y_seg, x_seg, weighting, point_count, degenerate, lut_blob, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, key, c.SourceRows, c.SourceCols,
		c.Geometry.InitialRadius, c.Geometry.FinalRadius, c.Geometry.InitialAngle, c.Geometry.FinalAngle,
		c.Segmentation.YSeg, c.Segmentation.XSeg, string(c.Weighting), c.Len(), c.Degenerate,
		blob, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert lut snapshot: %w", err)
	}

	monitoring.Diagf("lutstore: stored snapshot %s (%d points, %d bytes)", id, c.Len(), len(blob))
	return id, nil
}

// Get returns the newest lookup table stored under key.
func (s *Store) Get(ctx context.Context, key string) (*interp.Correspondence, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT lut_blob FROM lut_snapshots
		WHERE lut_key = ?
		ORDER BY created_at_ns DESC
		LIMIT 1
	`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: key %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("query lut snapshot: %w", err)
	}
	return decodeCorrespondence(blob)
}

// GetByID returns the lookup table with the given snapshot ID.
func (s *Store) GetByID(ctx context.Context, id string) (*interp.Correspondence, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT lut_blob FROM lut_snapshots WHERE snapshot_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query lut snapshot: %w", err)
	}
	return decodeCorrespondence(blob)
}

// GetOrPrecompute returns the cached lookup table for frames shaped like img,
// computing and storing it on a miss. hit reports whether the cache served it.
func (s *Store) GetOrPrecompute(ctx context.Context, img *mat.Dense, seg scanconv.GridSegmentation, g scanconv.SectorGeometry, opts interp.Options) (c *interp.Correspondence, hit bool, err error) {
	if img == nil || img.IsEmpty() {
		return nil, false, fmt.Errorf("%w: empty frame", scanconv.ErrShapeMismatch)
	}
	rows, cols := img.Dims()
	key := Key(rows, cols, g, seg, opts.Weighting)

	c, err = s.Get(ctx, key)
	switch {
	case err == nil:
		monitoring.Tracef("lutstore: hit %s", key[:12])
		return c, true, nil
	case !errors.Is(err, ErrNotFound):
		// A corrupt or unreadable snapshot is replaced rather than fatal.
		monitoring.Opsf("lutstore: discarding unreadable snapshot for %s: %v", key[:12], err)
	}

	c, err = interp.Precompute(img, seg, g, opts)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.Put(ctx, c); err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// List returns snapshot metadata, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, lut_key, source_rows, source_cols,
		       initial_radius, final_radius, initial_angle, final_angle,
		       y_seg, x_seg, weighting, point_count, degenerate,
		       length(lut_blob), created_at_ns
		FROM lut_snapshots
		ORDER BY created_at_ns DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list lut snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		var weighting string
		if err := rows.Scan(
			&sn.SnapshotID, &sn.Key, &sn.SourceRows, &sn.SourceCols,
			&sn.Geometry.InitialRadius, &sn.Geometry.FinalRadius, &sn.Geometry.InitialAngle, &sn.Geometry.FinalAngle,
			&sn.Segmentation.YSeg, &sn.Segmentation.XSeg, &weighting, &sn.Points, &sn.Degenerate,
			&sn.BlobBytes, &sn.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan lut snapshot: %w", err)
		}
		sn.Weighting = interp.Weighting(weighting)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lut_snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lut snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lut snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

// Prune keeps the newest snapshot per key and deletes the rest. It returns
// the number of rows removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM lut_snapshots
		WHERE snapshot_id NOT IN (
			SELECT snapshot_id FROM (
				SELECT snapshot_id,
				       ROW_NUMBER() OVER (PARTITION BY lut_key ORDER BY created_at_ns DESC) AS rn
				FROM lut_snapshots
			) WHERE rn = 1
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prune lut snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune lut snapshots: %w", err)
	}
	if n > 0 {
		monitoring.Diagf("lutstore: pruned %d stale snapshots", n)
	}
	return n, nil
}
