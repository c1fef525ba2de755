package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/tracker"
)

func states(r *Report) map[string]State {
	out := make(map[string]State, len(r.Migrations))
	for _, m := range r.Migrations {
		out[m.Version] = m.State
	}

	return out
}

func TestBuildReport_freshDatabase(t *testing.T) {
	t.Parallel()

	report := buildReport(scripts("1", "2"), nil, planOptions{})

	assert.Equal(t, BaselineVersion, report.CurrentVersion)
	assert.Equal(t, 2, report.TotalMigrations)

	for _, m := range report.Migrations {
		assert.Equal(t, StatePending, m.State)
		assert.Equal(t, ScriptType, m.Type)
		assert.Nil(t, m.InstalledOn)
	}
}

func TestBuildReport_versionZeroApplied(t *testing.T) {
	t.Parallel()

	all := scripts("0", "1")

	report := buildReport(all, historyOf(all[0]), planOptions{})

	assert.Equal(t, "0", report.CurrentVersion)
	assert.Equal(t, map[string]State{
		"0": StateSuccess,
		"1": StatePending,
	}, states(report))
}

func TestBuildReport_states(t *testing.T) {
	t.Parallel()

	all := scripts("1", "2", "3", "4", "5", "6", "7")

	history := historyOf(all[1], all[2], all[5])
	history = append(history, tracker.AppliedMigration{
		Version: "4", Checksum: all[3].Checksum, Success: false, Script: all[3].Filename,
	})

	// 3 has no script any more; 6 is applied; 7 lies above the target.
	resolved := []migration.Script{all[0], all[1], all[3], all[4], all[5], all[6]}
	history = append(history, historyOf(scripts("9")...)...)

	report := buildReport(resolved, history, planOptions{target: migration.MustParseVersion("6")})

	assert.Equal(t, "9", report.CurrentVersion)
	assert.Equal(t, 8, report.TotalMigrations)
	assert.Equal(t, map[string]State{
		"1": StateIgnored,
		"2": StateSuccess,
		"3": StateMissing,
		"4": StateFailed,
		"5": StateIgnored,
		"6": StateSuccess,
		"7": StateAboveTarget,
		"9": StateFuture,
	}, states(report))

	var versions []string
	for _, m := range report.Migrations {
		versions = append(versions, m.Version)
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "9"}, versions)
}

func TestBuildReport_outOfOrderPendingIsNotIgnored(t *testing.T) {
	t.Parallel()

	all := scripts("1", "2")

	report := buildReport(all, historyOf(all[1]), planOptions{outOfOrder: true})

	assert.Equal(t, StatePending, states(report)["1"])
}

func TestBuildReport_recordedFieldsWin(t *testing.T) {
	t.Parallel()

	all := scripts("1")
	history := historyOf(all...)
	history[0].ExecutionMs = 42

	report := buildReport(all, history, planOptions{})

	require.Len(t, report.Migrations, 1)

	m := report.Migrations[0]
	assert.Equal(t, "1", report.CurrentVersion)
	require.NotNil(t, m.InstalledOn)
	assert.Equal(t, history[0].InstalledOn, *m.InstalledOn)
	assert.Equal(t, 42, m.ExecutionMs)
	assert.Equal(t, all[0].Filename, m.Script)
	assert.Equal(t, all[0].Description, m.Description)
}

func TestInfo_doesNotCreateHistoryTable(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	r, _, _ := newTestRunner(t, &mockRegistry{scripts: scripts("1")}, store)

	report, err := r.Info(context.Background())

	require.NoError(t, err)
	assert.False(t, store.created)
	assert.Equal(t, BaselineVersion, report.CurrentVersion)
	assert.Equal(t, StatePending, report.Migrations[0].State)
}

func TestInfo_afterMigrate(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	r, _, _ := newTestRunner(t, &mockRegistry{scripts: scripts("1", "2")}, store)

	_, err := r.Migrate(context.Background())
	require.NoError(t, err)

	report, err := r.Info(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "2", report.CurrentVersion)
	assert.Equal(t, map[string]State{"1": StateSuccess, "2": StateSuccess}, states(report))
}
