package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/modhub/internal/flagx"
	"github.com/dmitrijs2005/modhub/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "15m"-style strings or integer nanoseconds. Absent keys leave the current
// value untouched.
type JsonConfig struct {
	DatabaseDSN      *string         `json:"database_dsn"`
	SessionTTL       *timex.Duration `json:"session_ttl"`
	QueryTimeout     *timex.Duration `json:"query_timeout"`
	MaxOpenConns     *int            `json:"max_open_conns"`
	MaxIdleConns     *int            `json:"max_idle_conns"`
	ConnMaxLifetime  *timex.Duration `json:"conn_max_lifetime"`
	PasswordHashCost *int            `json:"password_hash_cost"`
	RedisAddr        *string         `json:"redis_addr"`
	RedisPassword    *string         `json:"redis_password"`
	RedisDB          *int            `json:"redis_db"`
	MetricsAddr      *string         `json:"metrics_addr"`
	LogLevel         *string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens. An unreadable file or invalid JSON panics: a broken
// config must stop startup.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.QueryTimeout, c.QueryTimeout)
	setInt(&config.MaxOpenConns, c.MaxOpenConns)
	setInt(&config.MaxIdleConns, c.MaxIdleConns)
	setDuration(&config.ConnMaxLifetime, c.ConnMaxLifetime)
	setInt(&config.PasswordHashCost, c.PasswordHashCost)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
