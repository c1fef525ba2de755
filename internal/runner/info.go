package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/tracker"
)

// BaselineVersion is reported as the current version of an unmigrated database.
const BaselineVersion = "baseline"

// ScriptType is the only migration type this runner resolves.
const ScriptType = "SQL"

// State describes a migration in the status report.
type State string

// Migration states.
const (
	StatePending     State = "Pending"
	StateAboveTarget State = "Above Target"
	StateIgnored     State = "Ignored"
	StateSuccess     State = "Success"
	StateFailed      State = "Failed"
	StateMissing     State = "Missing"
	StateFuture      State = "Future"
)

// MigrationInfo is one line of the status report.
type MigrationInfo struct {
	Version     string
	Description string
	Type        string
	Script      string
	Checksum    string
	State       State
	InstalledOn *time.Time
	ExecutionMs int
}

// Report is the read-only migration status of a database.
type Report struct {
	TotalMigrations int
	CurrentVersion  string
	Migrations      []MigrationInfo
}

// Info reports every resolved or recorded migration and its state. It never
// creates the history table.
func (r *Runner) Info(ctx context.Context) (*Report, error) {
	scripts, err := r.registry.ListScripts()
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	history, err := r.readHistory(ctx)
	if err != nil {
		return nil, err
	}

	return buildReport(scripts, history, r.planOptions()), nil
}

type reportEntry struct {
	version migration.Version
	script  *migration.Script
	record  *tracker.AppliedMigration
}

func buildReport(scripts []migration.Script, history []tracker.AppliedMigration, opts planOptions) *Report {
	entries := make(map[string]*reportEntry, len(scripts)+len(history))

	var latest, current migration.Version

	for i := range scripts {
		s := &scripts[i]
		entries[s.Version.String()] = &reportEntry{version: s.Version, script: s}

		if isAbove(s.Version, latest) {
			latest = s.Version
		}
	}

	for i := range history {
		h := &history[i]

		v, err := migration.ParseVersion(h.Version)
		if err != nil {
			continue
		}

		e, ok := entries[v.String()]
		if !ok {
			e = &reportEntry{version: v}
			entries[v.String()] = e
		}

		e.record = h

		if h.Success && isAbove(v, current) {
			current = v
		}
	}

	ordered := make([]*reportEntry, 0, len(entries))
	for _, e := range entries {
		ordered = append(ordered, e)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].version.Less(ordered[j].version)
	})

	report := &Report{
		TotalMigrations: len(ordered),
		CurrentVersion:  BaselineVersion,
		Migrations:      make([]MigrationInfo, 0, len(ordered)),
	}

	if !current.IsZero() {
		report.CurrentVersion = current.String()
	}

	for _, e := range ordered {
		report.Migrations = append(report.Migrations, e.info(latest, current, opts))
	}

	return report
}

func (e *reportEntry) info(latest, current migration.Version, opts planOptions) MigrationInfo {
	mi := MigrationInfo{
		Version: e.version.String(),
		Type:    ScriptType,
	}

	if e.script != nil {
		mi.Description = e.script.Description
		mi.Script = e.script.Filename
		mi.Checksum = e.script.Checksum
	}

	if e.record != nil {
		installed := e.record.InstalledOn
		mi.InstalledOn = &installed
		mi.ExecutionMs = e.record.ExecutionMs
		mi.Checksum = e.record.Checksum

		if e.script == nil {
			mi.Description = e.record.Description
			mi.Script = e.record.Script
		}
	}

	mi.State = e.state(latest, current, opts)

	return mi
}

func (e *reportEntry) state(latest, current migration.Version, opts planOptions) State {
	if e.record != nil {
		switch {
		case !e.record.Success:
			return StateFailed
		case e.script != nil:
			return StateSuccess
		case isAbove(e.version, latest):
			return StateFuture
		default:
			return StateMissing
		}
	}

	switch {
	case !opts.target.IsZero() && e.version.Compare(opts.target) > 0:
		return StateAboveTarget
	case e.version.Compare(current) < 0 && !opts.outOfOrder:
		return StateIgnored
	default:
		return StatePending
	}
}
