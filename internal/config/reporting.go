package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AgingBucket groups overdue invoices by days past due for the
// receivables aging report.
type AgingBucket struct {
	Label   string `mapstructure:"label" json:"label"`
	MinDays int    `mapstructure:"minDays" json:"min_days"`
	MaxDays *int   `mapstructure:"maxDays" json:"max_days,omitempty"`
}

type ReportingConfig struct {
	AgingBuckets []AgingBucket `mapstructure:"agingBuckets"`
}

func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90+", MinDays: 91, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

// ReportingConfigHolder keeps the current reporting config and swaps it
// atomically when the file on disk changes.
type ReportingConfigHolder struct {
	current atomic.Value // holds ReportingConfig
}

func NewReportingConfigHolder() (*ReportingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reporting")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/factura")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FACTURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultReportingConfig()
		v.SetDefault("reporting.agingBuckets", defaults.AgingBuckets)
	}

	var cfg ReportingConfig
	if err := v.UnmarshalKey("reporting", &cfg); err != nil {
		return nil, err
	}
	if err := validateReportingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReportingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReportingConfig
		if err := v.UnmarshalKey("reporting", &updated); err != nil {
			log.Printf("[reporting-config] reload failed: %v", err)
			return
		}
		if err := validateReportingConfig(updated); err != nil {
			log.Printf("[reporting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reporting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ReportingConfigHolder) Get() ReportingConfig {
	return h.current.Load().(ReportingConfig)
}

func validateReportingConfig(cfg ReportingConfig) error {
	if len(cfg.AgingBuckets) == 0 {
		return errors.New("reporting.agingBuckets cannot be empty")
	}
	for _, b := range cfg.AgingBuckets {
		if b.MaxDays != nil && *b.MaxDays < b.MinDays {
			return errors.New("reporting.agingBuckets range is inverted")
		}
	}
	return nil
}
