// Package config loads the application settings from the environment, a .env file
// and an optional YAML config file, in increasing order of precedence: file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// EnvPrefix prefixes every environment variable, e.g. CHAINTRADER_TELEGRAM_TOKEN
const EnvPrefix = "CHAINTRADER"

// Defaults
const (
	DefaultStoragePath     = "chaintrader.db"
	DefaultMarketsInterval = "5m"
	DefaultAlertsInterval  = "60s"
	DefaultIndexerTimeout  = "10s"
	DefaultRateLimit       = 10.0
)

// Load reads the settings. configFile may be empty; a missing .env file is ignored.
func Load(configFile string) (*core.Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage_path", DefaultStoragePath)
	v.SetDefault("fee_recipient", "")
	v.SetDefault("markets_interval", DefaultMarketsInterval)
	v.SetDefault("alerts_interval", DefaultAlertsInterval)
	v.SetDefault("indexer.exchange_url", "")
	v.SetDefault("indexer.chronos_url", "")
	v.SetDefault("indexer.timeout", DefaultIndexerTimeout)
	v.SetDefault("indexer.rate_limit", DefaultRateLimit)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.users", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*core.Settings, error) {
	marketsInterval, err := duration(v, "markets_interval")
	if err != nil {
		return nil, err
	}

	alertsInterval, err := duration(v, "alerts_interval")
	if err != nil {
		return nil, err
	}

	timeout, err := duration(v, "indexer.timeout")
	if err != nil {
		return nil, err
	}

	users, err := userIDs(v.Get("telegram.users"))
	if err != nil {
		return nil, err
	}

	settings := &core.Settings{
		Indexer: core.IndexerSettings{
			ExchangeURL: v.GetString("indexer.exchange_url"),
			ChronosURL:  v.GetString("indexer.chronos_url"),
			Timeout:     timeout,
			RateLimit:   v.GetFloat64("indexer.rate_limit"),
		},
		Telegram: core.TelegramSettings{
			Enabled: v.GetBool("telegram.enabled"),
			Token:   v.GetString("telegram.token"),
			Users:   users,
		},
		StoragePath:     v.GetString("storage_path"),
		FeeRecipient:    v.GetString("fee_recipient"),
		MarketsInterval: marketsInterval,
		AlertsInterval:  alertsInterval,
	}

	if settings.Telegram.Enabled && settings.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram is enabled but %s_TELEGRAM_TOKEN is empty", EnvPrefix)
	}

	return settings, nil
}

// duration accepts Go durations and day/week units such as "1d"
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

// userIDs accepts a comma separated string from the environment or a list from the config file
func userIDs(raw any) ([]int, error) {
	var items []string

	switch value := raw.(type) {
	case nil:
		return nil, nil
	case string:
		items = strings.Split(value, ",")
	case []any:
		items = lo.Map(value, func(item any, _ int) string { return fmt.Sprint(item) })
	case []int:
		return value, nil
	default:
		return nil, fmt.Errorf("invalid telegram.users %v", raw)
	}

	items = lo.Compact(lo.Map(items, func(item string, _ int) string { return strings.TrimSpace(item) }))

	users := make([]int, 0, len(items))
	for _, item := range items {
		id, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", item, err)
		}
		users = append(users, id)
	}
	return users, nil
}
