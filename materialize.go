package strata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// Disposition reports what the materializer did to the file.
type Disposition int

const (
	// DispositionUntouched means the file was already current and was left
	// byte-identical.
	DispositionUntouched Disposition = iota
	// DispositionCreated means the file was absent and written with defaults.
	DispositionCreated
	// DispositionMigrated means missing schema fields were appended.
	DispositionMigrated
	// DispositionPruned means schema-foreign entries were removed on request.
	DispositionPruned
)

func (d Disposition) String() string {
	switch d {
	case DispositionCreated:
		return "created"
	case DispositionMigrated:
		return "migrated"
	case DispositionPruned:
		return "pruned"
	default:
		return "untouched"
	}
}

// FileState describes the on-disk configuration after materialization.
type FileState struct {
	Path        string
	Disposition Disposition

	// Values holds the schema fields present in the file, keyed by dot path,
	// with the loose values the codec decoded (defaults for a created file).
	Values map[string]any

	// Unknown holds entries present in the file but absent from the schema.
	// They are preserved through rewrites.
	Unknown []UnknownEntry

	// Added lists the fields written during creation or migration.
	Added []string
}

// EnsureCurrent materializes the configuration file at path: an absent file
// is created with every defaulted schema field and its documentation; a
// present file missing newly-added schema fields gets them appended with
// default and doc while every user-set value and schema-foreign entry is
// preserved; a current file is left byte-identical. The read-modify-write
// sequence holds an advisory lock so concurrent processes do not race to
// create or migrate the same file.
//
// Required fields without a default are never invented; they are listed in
// the file's header comment instead.
func EnsureCurrent(reg *Registry, path string, codec Codec, sealer Sealer) (*FileState, error) {
	var err error
	if codec == nil {
		if codec, err = CodecForPath(path); err != nil {
			return nil, err
		}
	}

	unlock, err := lockPath(path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	flat, _, err := readDocument(path, codec, sealer)
	if errors.Is(err, os.ErrNotExist) {
		return createFile(reg, path, codec, sealer)
	}
	if err != nil {
		return nil, err
	}

	values, unknown := splitByRegistry(reg, flat)

	var missing []string
	for _, d := range reg.Fields() {
		if _, present := values[d.Name]; present || d.Default == nil {
			continue
		}
		missing = append(missing, d.Name)
	}
	if len(missing) == 0 {
		return &FileState{
			Path:        path,
			Disposition: DispositionUntouched,
			Values:      values,
			Unknown:     unknown,
		}, nil
	}

	// Migration: rebuild the document in schema order, file values winning
	// over defaults, unknown entries carried through.
	doc, err := schemaDocument(reg, values, requiredHeader(reg))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	doc.Unknown = unknown
	if err := writeDocument(path, codec, sealer, doc); err != nil {
		return nil, err
	}

	for _, name := range missing {
		d, _ := reg.Field(name)
		values[name] = d.Default.Interface()
	}
	return &FileState{
		Path:        path,
		Disposition: DispositionMigrated,
		Values:      values,
		Unknown:     unknown,
		Added:       missing,
	}, nil
}

// Prune is the explicit step that removes entries the schema no longer
// declares. EnsureCurrent never deletes them on its own.
func Prune(reg *Registry, path string, codec Codec, sealer Sealer) (*FileState, error) {
	var err error
	if codec == nil {
		if codec, err = CodecForPath(path); err != nil {
			return nil, err
		}
	}

	unlock, err := lockPath(path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	flat, _, err := readDocument(path, codec, sealer)
	if err != nil {
		return nil, err
	}

	values, unknown := splitByRegistry(reg, flat)
	if len(unknown) == 0 {
		return &FileState{Path: path, Disposition: DispositionUntouched, Values: values}, nil
	}

	doc, err := schemaDocument(reg, values, requiredHeader(reg))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if err := writeDocument(path, codec, sealer, doc); err != nil {
		return nil, err
	}
	return &FileState{Path: path, Disposition: DispositionPruned, Values: values}, nil
}

// WriteEffective rewrites the configuration file with a resolved effective
// configuration. The previous file is backed up first by renaming it with a
// trailing tilde; schema-foreign entries from it are carried into the new
// file. Values overridden by higher-precedence sources become the persisted
// values, so use deliberately.
func WriteEffective(e *Effective, path string, codec Codec, sealer Sealer) error {
	var err error
	if codec == nil {
		if codec, err = CodecForPath(path); err != nil {
			return err
		}
	}

	unlock, err := lockPath(path)
	if err != nil {
		return err
	}
	defer unlock()

	var unknown []UnknownEntry
	backup := path + "~"
	backedUp := false
	flat, _, err := readDocument(path, codec, sealer)
	switch {
	case err == nil:
		_, unknown = splitByRegistry(e.Registry(), flat)
		if err := os.Rename(path, backup); err != nil {
			return &IOError{Op: "rename", Path: path, Err: err}
		}
		backedUp = true
	case errors.Is(err, os.ErrNotExist):
		// Nothing to back up.
	default:
		return err
	}

	header := fmt.Sprintf("Effective configuration written %s.",
		time.Now().Format(time.RFC1123))
	if backedUp {
		header += fmt.Sprintf("\nPrevious configuration backed up to %q.", backup)
	}

	doc := Document{Header: header, Unknown: unknown}
	for _, d := range e.Registry().Fields() {
		v, _ := e.Value(d.Name)
		doc.Fields = append(doc.Fields, DocField{Name: d.Name, Value: v, Doc: d.Doc})
	}
	return writeDocument(path, codec, sealer, doc)
}

// createFile writes a fresh file holding every defaulted field with its doc.
func createFile(reg *Registry, path string, codec Codec, sealer Sealer) (*FileState, error) {
	doc := Document{Header: requiredHeader(reg)}
	values := make(map[string]any)
	var added []string
	for _, d := range reg.Fields() {
		if d.Default == nil {
			continue
		}
		doc.Fields = append(doc.Fields, DocField{Name: d.Name, Value: *d.Default, Doc: d.Doc})
		values[d.Name] = d.Default.Interface()
		added = append(added, d.Name)
	}
	if err := writeDocument(path, codec, sealer, doc); err != nil {
		return nil, err
	}
	return &FileState{
		Path:        path,
		Disposition: DispositionCreated,
		Values:      values,
		Added:       added,
	}, nil
}

// schemaDocument builds a document in schema declaration order, preferring
// present file values over defaults. Present values are coerced so a rewrite
// never silently replaces a value the codec decoded.
func schemaDocument(reg *Registry, values map[string]any, header string) (Document, error) {
	doc := Document{Header: header}
	for _, d := range reg.Fields() {
		var v Value
		if raw, present := values[d.Name]; present {
			coerced, err := coerceField(d, raw)
			if err != nil {
				return Document{}, fmt.Errorf("field %q: %w", d.Name, err)
			}
			v = coerced
		} else if d.Default != nil {
			v = *d.Default
		} else {
			continue
		}
		doc.Fields = append(doc.Fields, DocField{Name: d.Name, Value: v, Doc: d.Doc})
	}
	return doc, nil
}

// requiredHeader lists required fields that have no default, since they
// cannot be written with an invented value.
func requiredHeader(reg *Registry) string {
	var lines []string
	for _, d := range reg.Fields() {
		if d.Default != nil {
			continue
		}
		line := fmt.Sprintf("%s (required, no default)", d.Name)
		if d.Doc != "" {
			line += ": " + d.Doc
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return "The following fields must be supplied by this file, the environment, or the command line:\n" +
		joinLines(lines)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += "  " + l
	}
	return out
}

// readDocument reads, optionally decrypts, and decodes the file into a flat
// dot-path map. The file handle is released before returning; nothing is
// held open across the rest of the pipeline.
func readDocument(path string, codec Codec, sealer Sealer) (map[string]any, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if sealer != nil {
		if data, err = sealer.Open(data); err != nil {
			return nil, nil, err
		}
	}
	flat, err := codec.Decode(data)
	if err != nil {
		return nil, nil, &DecodeError{Path: path, Err: err}
	}
	return flat, data, nil
}

// writeDocument encodes, optionally seals, and atomically writes the
// document.
func writeDocument(path string, codec Codec, sealer Sealer, doc Document) error {
	data, err := codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode config for %q: %w", path, err)
	}
	if sealer != nil {
		if data, err = sealer.Seal(data); err != nil {
			return err
		}
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data through a temp file in the same directory and
// renames it into place, so readers never observe a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // no-op after a successful rename

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return &IOError{Op: "write", Path: tempPath, Err: err}
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return &IOError{Op: "write", Path: tempPath, Err: err}
	}
	if err := tempFile.Close(); err != nil {
		return &IOError{Op: "write", Path: tempPath, Err: err}
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return &IOError{Op: "write", Path: tempPath, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// lockPath acquires the advisory lock guarding path's read-modify-write
// sequence and returns the release function.
func lockPath(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}
	return func() { _ = lock.Unlock() }, nil
}

// splitByRegistry partitions decoded entries into schema fields and unknown
// entries, the latter ordered by name for stable rewrites.
func splitByRegistry(reg *Registry, flat map[string]any) (map[string]any, []UnknownEntry) {
	values := make(map[string]any)
	var unknown []UnknownEntry
	for name, raw := range flat {
		if _, known := reg.Field(name); known {
			values[name] = raw
		} else {
			unknown = append(unknown, UnknownEntry{Name: name, Raw: raw})
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i].Name < unknown[j].Name })
	return values, unknown
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
