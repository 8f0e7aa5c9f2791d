package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should write a default config file when missing", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "config", "application.yaml")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		_, err = uuid.Parse(cfg.Workspace)
		assert.NoError(t, err, "generated workspace id should be a uuid")
		assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
		assert.Equal(t, "* * * * *", cfg.Refresh.Cron)
		assert.Equal(t, 7, cfg.HighlightDays)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		reloaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.Workspace, reloaded.Workspace, "workspace id must survive a restart")
	})

	t.Run("should layer file and environment over defaults", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := `
workspace: home
timezone: Asia/Tokyo
weekstart: sunday
storage:
  driver: postgres
  db:
    host: db.internal
    user: planner
export:
  icspath: /tmp/planboard.ics
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("PLANBOARD_STORAGE_DB_PORT", "6543")
		t.Setenv("PLANBOARD_HIGHLIGHTDAYS", "3")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "home", cfg.Workspace)
		assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
		assert.Equal(t, "db.internal", cfg.Storage.Database.Host)
		assert.Equal(t, "planner", cfg.Storage.Database.User)
		assert.Equal(t, 6543, cfg.Storage.Database.Port)
		assert.Equal(t, "planboard", cfg.Storage.Database.Schema)
		assert.Equal(t, 3, cfg.HighlightDays)
		assert.Equal(t, "/tmp/planboard.ics", cfg.Export.IcsPath)

		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "Asia/Tokyo", loc.String())
		day, err := cfg.FirstWeekday()
		require.NoError(t, err)
		assert.Equal(t, time.Sunday, day)
	})

	t.Run("should reject an unknown storage driver", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "application.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: mongo\n"), 0o600))

		_, err := Load(path)

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestApplication_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Application)
		valid  bool
	}{
		{"defaults", func(a *Application) {}, true},
		{"empty workspace", func(a *Application) { a.Workspace = " " }, false},
		{"unknown timezone", func(a *Application) { a.Timezone = "Mars/Olympus" }, false},
		{"unknown week start", func(a *Application) { a.WeekStart = "someday" }, false},
		{"negative highlight window", func(a *Application) { a.HighlightDays = -1 }, false},
		{"longest highlight window", func(a *Application) { a.HighlightDays = 3659 }, true},
		{"highlight window beyond range limit", func(a *Application) { a.HighlightDays = 3660 }, false},
		{"sqlite without path", func(a *Application) { a.Storage.SQLitePath = "" }, false},
		{"postgres", func(a *Application) { a.Storage.Driver = DriverPostgres }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
