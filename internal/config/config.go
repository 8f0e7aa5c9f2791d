package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/planboard/planboard/pkg/occurrence"
	log "github.com/sirupsen/logrus"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "PLANBOARD_"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Application struct {
	// Workspace is the id of the workspace this process serves.
	Workspace     string  `koanf:"workspace" yaml:"workspace"`
	Timezone      string  `koanf:"timezone" yaml:"timezone"`
	WeekStart     string  `koanf:"weekstart" yaml:"weekstart"`
	HighlightDays int     `koanf:"highlightdays" yaml:"highlightdays"`
	Storage       Storage `koanf:"storage" yaml:"storage"`
	Refresh       Refresh `koanf:"refresh" yaml:"refresh"`
	Export        Export  `koanf:"export" yaml:"export"`
	Import        Import  `koanf:"import" yaml:"import"`
}

type Storage struct {
	Driver     string   `koanf:"driver" yaml:"driver"`
	SQLitePath string   `koanf:"sqlitepath" yaml:"sqlitepath"`
	Database   Database `koanf:"db" yaml:"db"`
}

type Database struct {
	Host   string `koanf:"host" yaml:"host"`
	Port   int    `koanf:"port" yaml:"port"`
	User   string `koanf:"user" yaml:"user"`
	Pass   string `koanf:"pass" yaml:"pass"`
	Name   string `koanf:"name" yaml:"name"`
	Schema string `koanf:"schema" yaml:"schema"`
}

type Refresh struct {
	Cron string `koanf:"cron" yaml:"cron"`
}

type Export struct {
	// IcsPath is where the scheduler writes the calendar export. Empty disables it.
	IcsPath string `koanf:"icspath" yaml:"icspath"`
}

type Import struct {
	// IcsPath is a calendar merged into the workspace once at startup.
	IcsPath string `koanf:"icspath" yaml:"icspath"`
}

func Defaults() Application {
	return Application{
		Workspace:     "default",
		Timezone:      "Local",
		WeekStart:     "monday",
		HighlightDays: 7,
		Storage: Storage{
			Driver:     DriverSQLite,
			SQLitePath: "./data/planboard.db",
			Database: Database{
				Host:   "localhost",
				Port:   5432,
				User:   "planboard",
				Pass:   "",
				Name:   "planboard",
				Schema: "planboard",
			},
		},
		Refresh: Refresh{
			Cron: "* * * * *",
		},
	}
}

// Load layers defaults, the YAML file at path and PLANBOARD_* environment
// variables, in that order. A .env file in the working directory is loaded
// into the environment first. When the YAML file does not exist a default one
// is written with a freshly generated workspace id.
func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("could not load .env file: %v", err)
	}

	defaults := Defaults()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaults.Workspace = uuid.NewString()
		if err := writeDefault(path, defaults); err != nil {
			log.Warnf("could not write default config to %s: %v", path, err)
		} else {
			log.Infof("Wrote default configuration to %s", path)
		}
	}

	var k = koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if err := app.Validate(); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (a Application) Validate() error {
	if strings.TrimSpace(a.Workspace) == "" {
		return fmt.Errorf("%w: workspace must not be empty", ErrInvalidConfig)
	}
	if _, err := a.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, a.Timezone, err)
	}
	if _, err := a.FirstWeekday(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if a.HighlightDays < 0 || a.HighlightDays >= occurrence.MaxRangeDays {
		return fmt.Errorf("%w: highlightdays must be between 0 and %d", ErrInvalidConfig, occurrence.MaxRangeDays-1)
	}
	switch a.Storage.Driver {
	case DriverSQLite:
		if a.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlitepath must be set for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, a.Storage.Driver)
	}
	return nil
}

// Location resolves Timezone; empty means the local zone.
func (a Application) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// FirstWeekday resolves WeekStart; empty means Monday.
func (a Application) FirstWeekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(a.WeekStart))
	if name == "" {
		return time.Monday, nil
	}
	day, ok := weekdays[name]
	if !ok {
		return time.Monday, fmt.Errorf("unknown week start %q", a.WeekStart)
	}
	return day, nil
}

func writeDefault(path string, cfg Application) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	out, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
