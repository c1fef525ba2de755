package migration

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// filenamePattern matches versioned migration files:
//
//	V{version}__{description}.sql   (e.g., V2__add_books_table.sql, V1.1__seed_categories.sql)
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by Load
	`^V([0-9]+(?:[._][0-9]+)*)__(.+)\.sql$`,
)

// Load scans the root of fsys for migration files and returns them as unsorted Script values.
// Files that do not start with "V" or do not end in ".sql" are skipped; a "V*.sql" file whose
// name cannot be parsed is reported as a RegistryError.
func Load(fsys fs.FS) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var scripts []Script

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "V") || !strings.HasSuffix(name, ".sql") {
			continue
		}

		s, err := readScript(fsys, name)
		if err != nil {
			return nil, err
		}

		scripts = append(scripts, s)
	}

	return scripts, nil
}

// LoadFromDir loads migration files from a directory on disk.
func LoadFromDir(dir string) ([]Script, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	return Load(os.DirFS(dir))
}

// readScript parses the filename and reads the SQL body of a single script.
func readScript(fsys fs.FS, name string) (Script, error) {
	matches := filenamePattern.FindStringSubmatch(name)
	if matches == nil {
		return Script{}, &RegistryError{
			Filename: name,
			Err:      fmt.Errorf("%w: expected V{version}__{description}.sql", ErrInvalidVersion),
		}
	}

	version, err := ParseVersion(matches[1])
	if err != nil {
		return Script{}, &RegistryError{Filename: name, Err: err}
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Script{}, fmt.Errorf("reading migration file %s: %w", name, err)
	}

	sql := strings.TrimSpace(string(data))

	return Script{
		Version:     version,
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         sql,
		Checksum:    ComputeChecksum(sql),
		Filename:    name,
	}, nil
}
