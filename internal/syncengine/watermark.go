// Package syncengine implements the bidirectional incremental sync cycle:
// change detection against a source, writing the delta into an Iceberg
// table, and importing it into a target via upsert merge.
package syncengine

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gear6io/syncbridge/internal/icebergfmt"
	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var ErrWatermarkStoreInternal = icebergerrors.MustNewCode("syncengine.watermark_io_failed")

// WatermarkStore persists one Watermark record per Iceberg table as a JSON
// file, published via the same temp-file + rename primitive the catalog
// uses for its version hint: a single linearization point, no partial reads.
type WatermarkStore struct {
	dir string
}

// NewWatermarkStore returns a store rooted at dir, creating it if absent.
func NewWatermarkStore(dir string) (*WatermarkStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, icebergerrors.New(ErrWatermarkStoreInternal, "failed to create watermark directory", err).
			AddContext("dir", dir)
	}
	return &WatermarkStore{dir: dir}, nil
}

func (s *WatermarkStore) path(table string) string {
	return filepath.Join(s.dir, table+".json")
}

// Get returns the persisted watermark for table, or nil if none has been
// written yet (the table's first sync cycle).
func (s *WatermarkStore) Get(table string) (*icebergfmt.Watermark, error) {
	b, err := os.ReadFile(s.path(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, icebergerrors.New(ErrWatermarkStoreInternal, "failed to read watermark file", err).
			AddContext("table", table)
	}
	var w icebergfmt.Watermark
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, icebergerrors.New(ErrWatermarkStoreInternal, "failed to parse watermark file", err).
			AddContext("table", table)
	}
	return &w, nil
}

// Put atomically overwrites the watermark for w.TableName.
func (s *WatermarkStore) Put(w icebergfmt.Watermark) error {
	path := s.path(w.TableName)
	tmp := path + ".tmp"

	b, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return icebergerrors.New(ErrWatermarkStoreInternal, "failed to encode watermark", err).
			AddContext("table", w.TableName)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return icebergerrors.New(ErrWatermarkStoreInternal, "failed to write temporary watermark file", err).
			AddContext("table", w.TableName)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return icebergerrors.New(ErrWatermarkStoreInternal, "failed to atomically publish watermark file", err).
			AddContext("table", w.TableName)
	}
	return nil
}
