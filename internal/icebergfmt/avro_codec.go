package icebergfmt

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/hamba/avro/v2/ocf"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var ErrAvroWriteFailed = icebergerrors.MustNewCode("icebergfmt.avro_write_failed")

// writeOCF writes records to path as an Avro Object Container File using
// the literal schema text (not a library-regenerated one) as the embedded
// header schema. hamba/avro/v2's ocf.NewEncoder embeds the caller's schema
// string verbatim rather than round-tripping it through its own schema
// model first, which is exactly the "Avro library caveat" workaround §9
// describes — no extra schema-wrapper indirection is needed.
func writeOCF(path, schemaJSON string, records []any) error {
	f, err := os.Create(path)
	if err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to create avro file", err).AddContext("path", path)
	}
	defer f.Close()

	enc, err := ocf.NewEncoder(schemaJSON, f)
	if err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to create ocf encoder", err).AddContext("path", path)
	}

	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return icebergerrors.New(ErrAvroWriteFailed, "failed to encode avro record", err).AddContext("path", path)
		}
	}
	if err := enc.Close(); err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to close ocf encoder", err).AddContext("path", path)
	}
	return nil
}

// readOCF decodes every record in the OCF file at path into newRecord()'s
// return values, calling onRecord for each.
func readOCF(path string, newRecord func() any, onRecord func(any) error) error {
	f, err := os.Open(path)
	if err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to open avro file", err).AddContext("path", path)
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to create ocf decoder", err).AddContext("path", path)
	}

	for dec.HasNext() {
		rec := newRecord()
		if err := dec.Decode(rec); err != nil {
			return icebergerrors.New(ErrAvroWriteFailed, "failed to decode avro record", err).AddContext("path", path)
		}
		if err := onRecord(rec); err != nil {
			return err
		}
	}
	if err := dec.Error(); err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "avro decoder error", err).AddContext("path", path)
	}
	return nil
}

// WriteManifest writes entries to path as a manifest .avro file.
func WriteManifest(path string, entries []ManifestEntry) error {
	records := make([]any, len(entries))
	for i := range entries {
		records[i] = &entries[i]
	}
	return writeOCF(path, ManifestEntrySchema, records)
}

// ReadManifest reads every entry from a manifest .avro file at path.
func ReadManifest(path string) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	err := readOCF(path, func() any { return &ManifestEntry{} }, func(rec any) error {
		entries = append(entries, *rec.(*ManifestEntry))
		return nil
	})
	return entries, err
}

// WriteManifestList writes entries to path as a manifest-list .avro file.
func WriteManifestList(path string, entries []ManifestListEntry) error {
	records := make([]any, len(entries))
	for i := range entries {
		records[i] = &entries[i]
	}
	return writeOCF(path, ManifestListSchema, records)
}

// ReadManifestList reads every entry from a manifest-list .avro file.
func ReadManifestList(path string) ([]ManifestListEntry, error) {
	var entries []ManifestListEntry
	err := readOCF(path, func() any { return &ManifestListEntry{} }, func(rec any) error {
		entries = append(entries, *rec.(*ManifestListEntry))
		return nil
	})
	return entries, err
}

// ValidateManifestSchemaHasFieldIDs greps a manifest .avro file's header for
// the "field-id", "key-id" and "value-id" annotations, each of which must
// appear at least once; it does not check that every individual field
// carries its own annotation. This is the concrete
// self-test §4.3's "design requirement" and §9's Avro library caveat call
// for.
func ValidateManifestSchemaHasFieldIDs(path string) error {
	return validateSchemaHasFieldIDs(path, `"field-id"`, `"key-id"`, `"value-id"`)
}

// ValidateManifestListSchemaHasFieldIDs greps a manifest-list .avro file's
// header for the field-id annotation; the manifest-list schema has no
// map-typed fields, so key-id/value-id don't apply.
func ValidateManifestListSchemaHasFieldIDs(path string) error {
	return validateSchemaHasFieldIDs(path, `"field-id"`)
}

func validateSchemaHasFieldIDs(path string, want ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to open avro file for header validation", err).AddContext("path", path)
	}
	defer f.Close()

	// The OCF header (magic + metadata map, including the "avro.schema"
	// key) precedes the first sync marker; reading a generous prefix is
	// enough to grep it without parsing the container format by hand.
	buf := make([]byte, 64*1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return icebergerrors.New(ErrAvroWriteFailed, "failed to read avro header", err).AddContext("path", path)
	}
	header := buf[:n]

	if !bytes.HasPrefix(header, []byte("Obj\x01")) {
		return icebergerrors.New(ErrAvroWriteFailed, "file is missing avro object container magic bytes", nil).AddContext("path", path)
	}

	headerText := string(header)
	for _, w := range want {
		if !strings.Contains(headerText, w) {
			return icebergerrors.New(ErrAvroWriteFailed, "avro header missing required field-id annotation", nil).
				AddContext("path", path).AddContext("missing", w)
		}
	}
	return nil
}
