package migration

import (
	"fmt"
	"io/fs"

	"github.com/aqasim81/library-catalog/internal/parser"
)

// Registry resolves the ordered list of migration scripts from a file system.
type Registry struct {
	fsys    fs.FS
	checkFn func(sql string) error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStatementCheck overrides the per-script SQL check (useful for testing).
func WithStatementCheck(fn func(sql string) error) RegistryOption {
	return func(r *Registry) { r.checkFn = fn }
}

// NewRegistry creates a Registry reading scripts from the root of fsys.
func NewRegistry(fsys fs.FS, opts ...RegistryOption) *Registry {
	r := &Registry{
		fsys:    fsys,
		checkFn: CheckStatements,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ListScripts returns every script sorted by version ascending. It fails with a
// RegistryError when two scripts share a version, a filename is unparsable, or a
// script body cannot run as a single transaction.
func (r *Registry) ListScripts() ([]Script, error) {
	scripts, err := Load(r.fsys)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(scripts))

	for _, s := range scripts {
		key := s.Version.String()
		if other, dup := seen[key]; dup {
			return nil, &RegistryError{
				Filename: s.Filename,
				Err:      fmt.Errorf("%w: %s also defined by %s", ErrDuplicateVersion, key, other),
			}
		}

		seen[key] = s.Filename

		if r.checkFn != nil {
			if err := r.checkFn(s.SQL); err != nil {
				return nil, &RegistryError{Filename: s.Filename, Err: err}
			}
		}
	}

	return Sort(scripts), nil
}

// CheckStatements parses sql with the PostgreSQL parser and rejects statements
// that cannot run inside the transaction wrapping a migration.
func CheckStatements(sql string) error {
	result, err := parser.Parse(sql)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSQL, err)
	}

	return result.CheckTransactional()
}
