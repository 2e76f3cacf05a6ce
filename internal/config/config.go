// Package config loads crawler configuration via Viper.
package config

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/browser"
	"pyaterochka-price-crawler/internal/pyaterochka"
)

// Config captures every knob the crawler recognizes.
type Config struct {
	DBPath                    string                `mapstructure:"db_path"`
	BrowserExecutable         string                `mapstructure:"browser_executable"`
	CookiesStorePath          string                `mapstructure:"cookies_store_path"`
	CoordinatesPath           string                `mapstructure:"coordinates_path"`
	SleepMillisForEachCatalog int                   `mapstructure:"sleep_millis_for_each_catalog"`
	StoreWaitSeconds          int                   `mapstructure:"store_wait_seconds"`
	CatalogWaitSeconds        int                   `mapstructure:"catalog_wait_seconds"`
	UserAgent                 string                `mapstructure:"user_agent"`
	MetricsAddr               string                `mapstructure:"metrics_addr"`
	LogDevelopment            bool                  `mapstructure:"log_development"`
	Catalogs                  []pyaterochka.Catalog `mapstructure:"catalogs"`
}

// Load reads the config file at path and merges it over the defaults. Config
// is best-effort: a missing or unparsable file falls back to all defaults and
// is never a startup error. The returned function reports what happened so
// the caller can log it once a logger exists.
func Load(path string) (Config, func(*zap.Logger)) {
	v := viper.New()
	setDefaults(v)

	note := func(*zap.Logger) {}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			note = func(l *zap.Logger) {
				l.Warn("config file unusable, falling back to defaults",
					zap.String("path", path), zap.Error(err))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		note = func(l *zap.Logger) {
			l.Warn("config unmarshal failed, falling back to defaults",
				zap.String("path", path), zap.Error(err))
		}
		cfg = Config{}
		defaults := viper.New()
		setDefaults(defaults)
		_ = defaults.Unmarshal(&cfg)
	}

	if len(cfg.Catalogs) == 0 {
		cfg.Catalogs = pyaterochka.DefaultCatalogs
	}
	return cfg, note
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "database.sqlite")
	v.SetDefault("browser_executable", "")
	v.SetDefault("cookies_store_path", "pyaterochka_cookies.json")
	v.SetDefault("coordinates_path", "pyaterochka_stores_coord.json")
	v.SetDefault("sleep_millis_for_each_catalog", 700)
	v.SetDefault("store_wait_seconds", 5)
	v.SetDefault("catalog_wait_seconds", 9)
	v.SetDefault("user_agent", browser.DefaultUserAgent)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_development", true)
}

// CatalogDelay is the fixed inter-launch throttle for category fetches.
func (c Config) CatalogDelay() time.Duration {
	return time.Duration(c.SleepMillisForEachCatalog) * time.Millisecond
}

// StoreWait bounds the wait for the store lookup content block.
func (c Config) StoreWait() time.Duration {
	return time.Duration(c.StoreWaitSeconds) * time.Second
}

// CatalogWait bounds the wait for a catalog listing content block.
func (c Config) CatalogWait() time.Duration {
	return time.Duration(c.CatalogWaitSeconds) * time.Second
}
