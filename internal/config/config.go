package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Ledger     LedgerConfig
	Accounts   AccountsConfig
	Splitwise  SplitwiseConfig
	Categories map[string]string // Splitwise category id -> bucket name
	UI         UIConfig
}

// LedgerConfig holds the Buckets budget file settings.
type LedgerConfig struct {
	Path string
}

// AccountsConfig names the three ledger accounts the sync writes to, as they
// appear in the budget file. The splitwise account is the holding account
// tracking the net position with the service.
type AccountsConfig struct {
	Cash      string
	Payment   string
	Splitwise string
}

// SplitwiseConfig holds API credentials and the expense fetch window.
type SplitwiseConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	AccessToken    string `mapstructure:"access_token"`
	TokenType      string `mapstructure:"token_type"`
	DaysAgo        int    `mapstructure:"days_ago"`
	DatedAfter     string `mapstructure:"dated_after"` // YYYY-MM-DD; lower bound for the fetch window
	Limit          int
	CashKeyword    string `mapstructure:"cash_keyword"`
	IgnoreKeyword  string `mapstructure:"ignore_keyword"`
	CallbackAddr   string `mapstructure:"callback_addr"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Timezone string
}

// Load reads configuration from file and env. Env var overrides use prefix
// SPLITSYNC_. An explicit path wins over the SPLITSYNC_CONFIG env var, which
// wins over the default search path.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("ledger.path", "")
	v.SetDefault("accounts.cash", "Cash")
	v.SetDefault("accounts.payment", "Payments")
	v.SetDefault("accounts.splitwise", "Splitwise")
	v.SetDefault("splitwise.consumer_key", "")
	v.SetDefault("splitwise.consumer_secret", "")
	v.SetDefault("splitwise.access_token", "")
	v.SetDefault("splitwise.token_type", "bearer")
	v.SetDefault("splitwise.days_ago", 90)
	v.SetDefault("splitwise.limit", 200)
	v.SetDefault("splitwise.cash_keyword", "cash")
	v.SetDefault("splitwise.ignore_keyword", "ignore")
	v.SetDefault("splitwise.callback_addr", "localhost:1337")
	v.SetDefault("ui.timezone", "Europe/Madrid")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("SPLITSYNC_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "splitsync"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SPLITSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Since resolves the lower bound of the expense fetch window: days_ago back
// from now, clamped so it never reaches behind dated_after. The extra day
// compensates for the API filter skipping the boundary day itself.
func (c SplitwiseConfig) Since(now time.Time) (time.Time, error) {
	since := now.AddDate(0, 0, -(c.DaysAgo + 1))
	if c.DatedAfter == "" {
		return since, nil
	}
	floor, err := time.Parse("2006-01-02", c.DatedAfter)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dated_after: %w", err)
	}
	if since.Before(floor) {
		return floor, nil
	}
	return since, nil
}
