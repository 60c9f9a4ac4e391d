// Package config loads the pipeline's layered configuration: built-in
// defaults, an optional config file, environment variables, and finally
// CLI flags (highest precedence), mirroring the teacher's
// env-vars-with-safe-fallbacks discipline (cmd/engine/main.go's
// requireEnv/getEnvOrDefault) but generalized through viper so every knob
// has one source of truth instead of scattered os.Getenv calls.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// KillSwitchConfig holds the one documented policy knob the kill-switch
// evaluator consults: whether an unknown HOA fee passes or fails the hard
// criterion. Default is the stricter "unknown -> fail" reading from the
// specification's open question.
type KillSwitchConfig struct {
	UnknownHOAFailsHard bool `mapstructure:"unknown_hoa_fails_hard"`
}

// ExtractionConfig tunes the extraction orchestrator and its rate limiters.
type ExtractionConfig struct {
	PropertyConcurrency     int           `mapstructure:"property_concurrency"`
	PerSourceDownloadFanout int           `mapstructure:"per_source_download_fanout"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	MaxImageDimension       int           `mapstructure:"max_image_dimension"`
	HammingThreshold        int           `mapstructure:"hamming_threshold"`
	LSHBands                int           `mapstructure:"lsh_bands"`
}

// CostConfig supplies the financing assumptions P05_cost needs to turn a
// listing price and the assessor's tax figures into a monthly estimate.
// None of these are observable per-property, so they are operator-tunable
// defaults rather than extracted fields.
type CostConfig struct {
	DownPaymentPct    float64 `mapstructure:"down_payment_pct"`
	AnnualInterestPct float64 `mapstructure:"annual_interest_pct"`
	LoanTermYears     int     `mapstructure:"loan_term_years"`
	InsuranceRatePct  float64 `mapstructure:"insurance_rate_pct"`
	DefaultTaxRatePct float64 `mapstructure:"default_tax_rate_pct"`
	MonthlyUtilities  float64 `mapstructure:"monthly_utilities"`
}

// CircuitConfig tunes the breaker/rate-limiter component.
type CircuitConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	SessionIdleReset time.Duration `mapstructure:"session_idle_reset"`
}

// StoreConfig points at the durable state directory and tunes lock expiry.
type StoreConfig struct {
	DataDir    string        `mapstructure:"data_dir"`
	ImagesDir  string        `mapstructure:"images_dir"`
	ReportsDir string        `mapstructure:"reports_dir"`
	LockExpiry time.Duration `mapstructure:"lock_expiry"`
}

// Config is the fully-resolved configuration the CLI driver builds and
// hands to the phase orchestrator. Core packages never read flags or
// environment variables themselves — they take a Config (or one of its
// sub-structs) as a constructor argument.
type Config struct {
	RecordsAPIToken string           `mapstructure:"records_api_token"`
	ProxyURL        string           `mapstructure:"proxy_url"`
	ListingBaseURL  string           `mapstructure:"listing_base_url"`
	RecordsBaseURL  string           `mapstructure:"records_base_url"`
	InputCSV        string           `mapstructure:"input_csv"`
	OutputCSV       string           `mapstructure:"output_csv"`
	Strict          bool             `mapstructure:"strict"`
	Resume          bool             `mapstructure:"resume"`
	Fresh           bool             `mapstructure:"fresh"`
	SkipPhases      []string         `mapstructure:"skip_phases"`
	KillSwitch      KillSwitchConfig `mapstructure:"kill_switch"`
	Extraction      ExtractionConfig `mapstructure:"extraction"`
	Cost            CostConfig       `mapstructure:"cost"`
	Circuit         CircuitConfig    `mapstructure:"circuit"`
	Store           StoreConfig      `mapstructure:"store"`
}

// Load builds a Config from defaults, an optional config file at
// configPath (ignored if empty or missing), and PIPELINE_-prefixed
// environment variables. Flags are applied by the caller (cmd/pipeline)
// via viper.BindPFlag before Load runs, so they already take precedence
// over the environment by the time Load unmarshals.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kill_switch.unknown_hoa_fails_hard", true)

	v.SetDefault("extraction.property_concurrency", 3)
	v.SetDefault("extraction.per_source_download_fanout", 4)
	v.SetDefault("extraction.request_timeout", 30*time.Second)
	v.SetDefault("extraction.max_image_dimension", 1024)
	v.SetDefault("extraction.hamming_threshold", 8)
	v.SetDefault("extraction.lsh_bands", 8)

	v.SetDefault("cost.down_payment_pct", 0.20)
	v.SetDefault("cost.annual_interest_pct", 0.065)
	v.SetDefault("cost.loan_term_years", 30)
	v.SetDefault("cost.insurance_rate_pct", 0.0035)
	v.SetDefault("cost.default_tax_rate_pct", 0.021)
	v.SetDefault("cost.monthly_utilities", 250.0)

	v.SetDefault("circuit.failure_threshold", 3)
	v.SetDefault("circuit.cooldown_period", 30*time.Minute)
	v.SetDefault("circuit.session_idle_reset", 30*time.Minute)

	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("store.images_dir", "./data/images")
	v.SetDefault("store.reports_dir", "./data/reports")
	v.SetDefault("store.lock_expiry", 30*time.Minute)

	v.SetDefault("records_api_token", "")
	v.SetDefault("proxy_url", "")
	v.SetDefault("listing_base_url", "https://listings.example.invalid")
	v.SetDefault("records_base_url", "https://records.example.invalid")
	v.SetDefault("input_csv", "./data/properties.csv")
	v.SetDefault("output_csv", "./data/ranked.csv")

	v.SetDefault("resume", true)
}
