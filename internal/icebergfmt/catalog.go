package icebergfmt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var (
	ErrTableNotFound      = icebergerrors.MustNewCode("icebergfmt.table_not_found")
	ErrTableExists        = icebergerrors.MustNewCode("icebergfmt.table_exists")
	ErrCatalogInternal    = icebergerrors.MustNewCode("icebergfmt.catalog_internal")
	ErrCatalogInvalidHint = icebergerrors.MustNewCode("icebergfmt.catalog_invalid_hint")
)

const (
	versionHintFile = "version-hint.txt"
	metadataDirName = "metadata"
	dataDirName     = "data"
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Catalog is a single-writer-per-table filesystem catalog rooted at a
// warehouse directory: <warehouse>/<table>/{data,metadata}/. Commits are made
// durable by writing a new numbered metadata file and then atomically
// renaming a temp version-hint file over the real one, the same primitive
// the teacher's server/catalog/json/catalog.go uses to publish catalog.json.
type Catalog struct {
	warehouse string
}

// NewCatalog returns a Catalog rooted at warehouse. The directory is created
// on first use; it need not exist yet.
func NewCatalog(warehouse string) *Catalog {
	return &Catalog{warehouse: warehouse}
}

func (c *Catalog) tableDir(name string) string {
	return filepath.Join(c.warehouse, name)
}

func (c *Catalog) dataDir(name string) string {
	return filepath.Join(c.tableDir(name), dataDirName)
}

func (c *Catalog) metadataDir(name string) string {
	return filepath.Join(c.tableDir(name), metadataDirName)
}

func (c *Catalog) versionHintPath(name string) string {
	return filepath.Join(c.metadataDir(name), versionHintFile)
}

func (c *Catalog) metadataFilePath(name string, version int) string {
	return filepath.Join(c.metadataDir(name), fmt.Sprintf("v%d.metadata.json", version))
}

// DataDir returns the directory new Parquet data files for name should be
// written into.
func (c *Catalog) DataDir(name string) string {
	return c.dataDir(name)
}

// ManifestDir returns the directory new manifest/manifest-list Avro files
// for name should be written into; they live alongside the metadata.
func (c *Catalog) ManifestDir(name string) string {
	return c.metadataDir(name)
}

// InitializeTable creates the data/ and metadata/ directories for name.
// Idempotent: calling it again on an already-initialized table is a no-op.
// Fails if the table path exists as a non-directory.
func (c *Catalog) InitializeTable(name string) error {
	if info, err := os.Stat(c.tableDir(name)); err == nil && !info.IsDir() {
		return icebergerrors.New(ErrCatalogInternal, "table path exists and is not a directory", nil).
			AddContext("table", name).AddContext("path", c.tableDir(name))
	}
	if err := os.MkdirAll(c.dataDir(name), dirPermissions); err != nil {
		return icebergerrors.New(ErrCatalogInternal, "failed to create data directory", err).AddContext("table", name)
	}
	if err := os.MkdirAll(c.metadataDir(name), dirPermissions); err != nil {
		return icebergerrors.New(ErrCatalogInternal, "failed to create metadata directory", err).AddContext("table", name)
	}
	return nil
}

// readVersionHint returns the current metadata version for name, or 0 if no
// hint file exists yet (table not committed to, or not present at all).
func (c *Catalog) readVersionHint(name string) (int, error) {
	b, err := os.ReadFile(c.versionHintPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, icebergerrors.New(ErrCatalogInternal, "failed to read version hint", err).AddContext("table", name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, icebergerrors.New(ErrCatalogInvalidHint, "version hint is not a valid integer", err).
			AddContext("table", name).AddContext("contents", string(b))
	}
	return n, nil
}

// Commit writes metadata as the next numbered metadata file and atomically
// publishes it by rename-over of version-hint.txt. The rename is the single
// linearization point: readers see either the prior hint or this one, never
// a partially written file.
func (c *Catalog) Commit(name string, metadata *TableMetadata) (int, error) {
	current, err := c.readVersionHint(name)
	if err != nil {
		return 0, err
	}
	next := current + 1

	metaPath := c.metadataFilePath(name, next)
	if err := writeJSONFile(metaPath, metadata); err != nil {
		return 0, icebergerrors.New(ErrCatalogInternal, "failed to write metadata file", err).
			AddContext("table", name).AddContext("path", metaPath)
	}

	hintPath := c.versionHintPath(name)
	tempHint := hintPath + ".tmp"
	defer os.Remove(tempHint)

	if err := os.WriteFile(tempHint, []byte(strconv.Itoa(next)), filePermissions); err != nil {
		return 0, icebergerrors.New(ErrCatalogInternal, "failed to write temporary version hint", err).
			AddContext("table", name)
	}
	if err := os.Rename(tempHint, hintPath); err != nil {
		return 0, icebergerrors.New(ErrCatalogInternal, "failed to atomically publish version hint", err).
			AddContext("table", name)
	}
	return next, nil
}

// writeJSONFile writes v to path as indented JSON via a same-directory temp
// file, so a crash mid-write never leaves a torn v{N}.metadata.json for
// Commit's rename step to publish.
func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// TableExists reports whether name has a readable version hint naming a
// metadata file that is itself present.
func (c *Catalog) TableExists(name string) bool {
	n, err := c.readVersionHint(name)
	if err != nil || n == 0 {
		return false
	}
	_, err = os.Stat(c.metadataFilePath(name, n))
	return err == nil
}

// LoadTable reads the current version hint and parses the metadata file it
// names. Returns (nil, nil) if the table does not exist or has no hint yet.
func (c *Catalog) LoadTable(name string) (*TableMetadata, error) {
	n, err := c.readVersionHint(name)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b, err := os.ReadFile(c.metadataFilePath(name, n))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, icebergerrors.New(ErrTableNotFound, "version hint names a missing metadata file", err).
				AddContext("table", name).AddContext("version", n)
		}
		return nil, icebergerrors.New(ErrCatalogInternal, "failed to read metadata file", err).AddContext("table", name)
	}
	var meta TableMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, icebergerrors.New(ErrCatalogInternal, "failed to parse metadata file", err).AddContext("table", name)
	}
	return &meta, nil
}
