package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/runner"
)

// MigrationEntry is one element of the info report.
type MigrationEntry struct {
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Script      string     `json:"script,omitempty"`
	State       string     `json:"state"`
	InstalledOn *time.Time `json:"installedOn,omitempty"`
}

// MigrationInfoResponse is the body of GET /api/flyway/info.
type MigrationInfoResponse struct {
	Enabled         bool             `json:"enabled"`
	TotalMigrations int              `json:"totalMigrations"`
	CurrentVersion  string           `json:"currentVersion"`
	Migrations      []MigrationEntry `json:"migrations"`
}

// NewMigrationInfoResponse converts a status report to its wire form.
func NewMigrationInfoResponse(report *runner.Report) MigrationInfoResponse {
	resp := MigrationInfoResponse{
		Enabled:         true,
		TotalMigrations: report.TotalMigrations,
		CurrentVersion:  report.CurrentVersion,
		Migrations:      make([]MigrationEntry, 0, len(report.Migrations)),
	}

	for _, m := range report.Migrations {
		resp.Migrations = append(resp.Migrations, MigrationEntry{
			Version:     m.Version,
			Description: m.Description,
			Type:        m.Type,
			Script:      m.Script,
			State:       string(m.State),
			InstalledOn: m.InstalledOn,
		})
	}

	return resp
}

// MigrationInfo handles GET /api/flyway/info.
func (h *Handler) MigrationInfo(c *gin.Context) {
	report, err := h.migrations.Info(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMigrationInfoResponse(report))
}
