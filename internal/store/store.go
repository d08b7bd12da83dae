// Package store provides a thin bbolt wrapper for spread's local data store.
//
// Imported datasets are kept until removed explicitly. Computed layouts are
// memoised under a content hash of their inputs, so a cached entry can never
// be stale: changing a sample or a config field changes the key.
//
// Buckets:
//
//	datasets: imported datasets keyed by name
//	layouts:  memoised LayoutResults keyed by content hash
//	_meta:    internal, holds schema version, created_at
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/spread/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// layoutVersion is mixed into every layout key. Bump it whenever the
// geometry computed for the same input changes, to orphan old entries.
const layoutVersion = 1

// Bucket name constants.
var (
	bucketDatasets = []byte("datasets")
	bucketLayouts  = []byte("layouts")
	bucketInternal = []byte("_meta")
)

// Bucket names accepted by ClearBucket.
const (
	BucketDatasets = "datasets"
	BucketLayouts  = "layouts"
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{BucketDatasets, BucketLayouts}

// ErrNotFound is returned when a named dataset does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDatasets, bucketLayouts, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion() (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket(bucketInternal).Get([]byte("schema_version")))
		return nil
	})
	return v, err
}

// ─── Datasets ─────────────────────────────────────────────────────────────────

// ValidName reports whether name can be used as a dataset key.
func ValidName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("dataset name must not be empty")
	case strings.ContainsAny(name, "/\\\n\t"):
		return fmt.Errorf("dataset name %q must not contain slashes or control characters", name)
	}
	return nil
}

// PutDataset stores ds under ds.Name, stamping StoredAt. An existing dataset
// with the same name is replaced.
func (s *Store) PutDataset(ds model.Dataset) error {
	if err := ValidName(ds.Name); err != nil {
		return err
	}
	ds.StoredAt = time.Now().UTC()
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).Put([]byte(ds.Name), data)
	})
}

// GetDataset retrieves a dataset by name.
// Returns (ds, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetDataset(name string) (model.Dataset, bool, error) {
	var ds model.Dataset
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDatasets).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &ds)
	})
	if err != nil {
		return model.Dataset{}, false, fmt.Errorf("decoding dataset %s: %w", name, err)
	}
	return ds, found, nil
}

// ListDatasets returns all stored datasets, sorted by name.
func (s *Store) ListDatasets() ([]model.Dataset, error) {
	var sets []model.Dataset
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).ForEach(func(k, v []byte) error {
			var ds model.Dataset
			if err := json.Unmarshal(v, &ds); err != nil {
				return fmt.Errorf("decoding dataset %s: %w", k, err)
			}
			sets = append(sets, ds)
			return nil
		})
	})
	return sets, err
}

// DeleteDataset removes a dataset by name. Returns ErrNotFound if it does
// not exist.
func (s *Store) DeleteDataset(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatasets)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("dataset %q: %w", name, ErrNotFound)
		}
		return b.Delete([]byte(name))
	})
}

// ─── Layouts ──────────────────────────────────────────────────────────────────

// LayoutKey builds the cache key for the layout of rows under cfg.
// Format: layout:<sha256 hex of the canonical JSON encoding of the inputs>.
func LayoutKey(rows []model.LabeledSeries, cfg model.GeometryConfig) (string, error) {
	data, err := json.Marshal(struct {
		Version int                   `json:"v"`
		Rows    []model.LabeledSeries `json:"rows"`
		Config  model.GeometryConfig  `json:"config"`
	}{layoutVersion, rows, cfg})
	if err != nil {
		// Non-finite samples or config values cannot be encoded; such
		// input never lays out successfully, so it is never cached.
		return "", fmt.Errorf("hashing layout input: %w", err)
	}
	sum := sha256.Sum256(data)
	return "layout:" + hex.EncodeToString(sum[:]), nil
}

// PutLayout stores a computed layout under key.
func (s *Store) PutLayout(key string, l *model.LayoutResult) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLayouts).Put([]byte(key), data)
	})
}

// GetLayout retrieves a memoised layout by key.
// Returns (l, true, nil) on a hit, (nil, false, nil) on a miss.
func (s *Store) GetLayout(key string) (*model.LayoutResult, bool, error) {
	var l *model.LayoutResult
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLayouts).Get([]byte(key))
		if v == nil {
			return nil
		}
		l = new(model.LayoutResult)
		return json.Unmarshal(v, l)
	})
	if err != nil {
		return nil, false, fmt.Errorf("decoding layout: %w", err)
	}
	return l, l != nil, nil
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// BucketStats returns row counts and approximate sizes for every
// user-facing bucket, in AllBuckets order.
func (s *Store) BucketStats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			_ = b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// Stats summarises the store for `spread cache stats`.
func (s *Store) Stats() (*model.CacheStats, error) {
	buckets, err := s.BucketStats()
	if err != nil {
		return nil, err
	}
	version, err := s.SchemaVersion()
	if err != nil {
		return nil, err
	}
	out := &model.CacheStats{Path: s.Path(), SchemaVersion: version}
	for _, b := range buckets {
		switch b.Name {
		case BucketDatasets:
			out.Datasets = b.Count
		case BucketLayouts:
			out.Layouts = b.Count
		}
	}
	if fi, err := os.Stat(s.Path()); err == nil {
		out.SizeBytes = fi.Size()
	}
	return out, nil
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if name != BucketDatasets && name != BucketLayouts {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file and atomically replaces
// the original, reclaiming pages freed by earlier clears. The Store stays
// usable afterwards. Returns the file size before and after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.Path()
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	before = fi.Size()

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("opening %s: %w", tmp, err)
	}
	if err := bolt.Compact(dst, s.db, 64<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return before, 0, fmt.Errorf("copying data: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, err
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return before, 0, fmt.Errorf("replacing database: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, fmt.Errorf("reopening %s: %w", path, err)
	}
	s.db = db

	if fi, err := os.Stat(path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}
