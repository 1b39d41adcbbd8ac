package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/talentops/autopilot/internal/config"
	"github.com/talentops/autopilot/internal/db"
	"github.com/talentops/autopilot/internal/db/driver"
	"github.com/talentops/autopilot/internal/lock"
	"github.com/talentops/autopilot/internal/progress"
)

// loadConfig loads the config file and layers environment overrides on top
// (AUTOPILOT_MODEL, AUTOPILOT_AGENT_URL, AUTOPILOT_AGENT_TOKEN).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("model"); v != "" {
		cfg.Model = v
	}
	if v := viper.GetString("agent_url"); v != "" {
		cfg.Agent.BaseURL = v
	}
	if v := viper.GetString("agent_token"); v != "" {
		cfg.Agent.Token = v
	}
	cfg.Clamp()
	return cfg, nil
}

// openStore opens the configured persistence store.
func openStore(cfg *config.Config) (*db.DB, error) {
	switch cfg.Store.Dialect {
	case "", "sqlite":
		return db.Open(cfg.DBPath())
	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for dialect postgres")
		}
		return db.OpenWithDialect(cfg.Store.DSN, driver.DialectPostgres)
	default:
		return nil, fmt.Errorf("unknown store dialect %q", cfg.Store.Dialect)
	}
}

// newGuard creates the run-lock guard over the locks directory.
func newGuard() *lock.Guard {
	return lock.NewGuard(config.LocksDir(), lock.DefaultOwner())
}

// newDisplay creates the progress display honoring the global quiet flag.
func newDisplay() *progress.Display {
	return progress.New(quiet)
}
