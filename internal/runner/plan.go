package runner

import (
	"fmt"
	"strings"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/tracker"
)

// planOptions carries the Runner settings that influence which scripts are pending.
type planOptions struct {
	target        migration.Version
	outOfOrder    bool
	ignoreMissing bool
}

// plan is the outcome of reconciling the registry with the schema history.
type plan struct {
	applied []migration.Script // resolved scripts already applied successfully
	pending []migration.Script // scripts to execute, ascending
	missing []string           // applied versions below the newest script that no longer resolve
	future  []string           // applied versions above the newest script
	current migration.Version  // highest successfully applied version
}

// buildPlan validates every successful history row against the registry and
// computes the pending scripts. It never touches the database, so all
// integrity errors surface before anything is executed.
func buildPlan(scripts []migration.Script, history []tracker.AppliedMigration, opts planOptions) (*plan, error) {
	resolved := make(map[string]*migration.Script, len(scripts))
	for i := range scripts {
		resolved[scripts[i].Version.String()] = &scripts[i]
	}

	var latest migration.Version
	if len(scripts) > 0 {
		latest = scripts[len(scripts)-1].Version
	}

	p := &plan{}
	applied := make(map[string]bool, len(history))

	for _, h := range history {
		if !h.Success {
			continue
		}

		v, err := migration.ParseVersion(h.Version)
		if err != nil {
			return nil, fmt.Errorf("schema history: %w", err)
		}

		applied[v.String()] = true

		if isAbove(v, p.current) {
			p.current = v
		}

		s, ok := resolved[v.String()]
		if !ok {
			if isAbove(v, latest) {
				p.future = append(p.future, v.String())
			} else {
				p.missing = append(p.missing, v.String())
			}

			continue
		}

		if s.Checksum != h.Checksum {
			return nil, &ChecksumMismatchError{
				Version:  v.String(),
				Script:   s.Filename,
				Recorded: h.Checksum,
				Resolved: s.Checksum,
			}
		}
	}

	if len(p.missing) > 0 && !opts.ignoreMissing {
		return nil, fmt.Errorf("%w: %s", ErrMissingScript, strings.Join(p.missing, ", "))
	}

	for _, s := range scripts {
		if applied[s.Version.String()] {
			p.applied = append(p.applied, s)

			continue
		}

		if !opts.target.IsZero() && s.Version.Compare(opts.target) > 0 {
			continue
		}

		if s.Version.Compare(p.current) < 0 && !opts.outOfOrder {
			return nil, fmt.Errorf("%w: %s (%s) is below current version %s",
				ErrOutOfOrder, s.Version, s.Filename, p.current)
		}

		p.pending = append(p.pending, s)
	}

	return p, nil
}

// isAbove reports whether v is higher than ref, where a zero ref (nothing
// applied or resolved yet) is below every parsed version, including "0".
func isAbove(v, ref migration.Version) bool {
	return ref.IsZero() || v.Compare(ref) > 0
}
