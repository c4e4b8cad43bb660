/*
Package config loads the engine's runtime configuration.

SOURCES (later wins):
 1. Built-in defaults (Defaults)
 2. Optional YAML file (--config, default config.yaml)
 3. Environment variables prefixed STAFFING_, e.g.
    STAFFING_SERVER_PORT=9090 or STAFFING_FORECAST_RATEREFERENCE=month_start

Keys are lower case without separators inside a segment so that a single
underscore in an environment variable always means nesting.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/overtime"
)

const envPrefix = "STAFFING_"

type Application struct {
	Server    Server    `koanf:"server"`
	Database  Database  `koanf:"db"`
	Log       Log       `koanf:"log"`
	Forecast  Forecast  `koanf:"forecast"`
	Overtime  Overtime  `koanf:"overtime"`
	Snapshots Snapshots `koanf:"snapshots"`
}

type Server struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowedorigins"`
}

type Database struct {
	// Path of the SQLite file; ":memory:" for a throwaway database.
	Path string `koanf:"path"`
}

type Log struct {
	Level string `koanf:"level"`
}

type Forecast struct {
	RateReference   string  `koanf:"ratereference"`
	SellRateScope   string  `koanf:"sellratescope"`
	HoursPerHoliday float64 `koanf:"hoursperholiday"`
	Precision       int32   `koanf:"precision"`
}

type Overtime struct {
	RequireApprovals bool `koanf:"requireapprovals"`
}

type Snapshots struct {
	Enabled       bool          `koanf:"enabled"`
	CheckInterval time.Duration `koanf:"checkinterval"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Application {
	opts := forecast.DefaultOptions()
	return Application{
		Server: Server{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: Database{Path: "staffing.db"},
		Log:      Log{Level: "info"},
		Forecast: Forecast{
			RateReference:   string(opts.RateReference),
			SellRateScope:   string(opts.SellRateScope),
			HoursPerHoliday: opts.HoursPerHoliday.InexactFloat64(),
			Precision:       opts.Precision,
		},
		Snapshots: Snapshots{
			Enabled:       true,
			CheckInterval: time.Hour,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Infof("Config file not found at %s, using defaults and environment variables", path)
			} else {
				log.Errorf("error loading config from YAML: %v", err)
				return Application{}, err
			}
		} else {
			log.Infof("Loaded configuration from file: %s", path)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			if k == "server.allowedorigins" {
				return k, strings.Split(v, ",")
			}
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
	if _, err := app.ForecastOptions(); err != nil {
		return Application{}, err
	}
	if _, err := app.LogLevel(); err != nil {
		return Application{}, err
	}

	return app, nil
}

// ForecastOptions converts the forecast section and validates it.
func (a Application) ForecastOptions() (forecast.Options, error) {
	opts := forecast.Options{
		RateReference:   forecast.RateReference(a.Forecast.RateReference),
		SellRateScope:   forecast.SellRateScope(a.Forecast.SellRateScope),
		HoursPerHoliday: decimal.NewFromFloat(a.Forecast.HoursPerHoliday),
		Precision:       a.Forecast.Precision,
	}
	if err := opts.Validate(); err != nil {
		return forecast.Options{}, fmt.Errorf("forecast config: %w", err)
	}
	return opts, nil
}

func (a Application) OvertimeOptions() overtime.Options {
	return overtime.Options{RequireApprovals: a.Overtime.RequireApprovals}
}

func (a Application) LogLevel() (log.Level, error) {
	level, err := log.ParseLevel(a.Log.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log config: %w", err)
	}
	return level, nil
}
