package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/modhub/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-d string     PostgreSQL DSN
//	-t int        session TTL, minutes
//	-q duration   per-operation timeout (e.g. "5s")
//	-b int        bcrypt cost
//	-r string     Redis address for the session cache
//	-m string     metrics listen address
//	-l string     log level
//
// Unknown arguments are filtered out first so -c/-config can coexist.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-t", "-q", "-b", "-r", "-m", "-l"})

	fs := flag.NewFlagSet("modhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session ttl (in minutes)")
	fs.DurationVar(&config.QueryTimeout, "q", config.QueryTimeout, "per-operation timeout")
	fs.IntVar(&config.PasswordHashCost, "b", config.PasswordHashCost, "bcrypt cost")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for the session cache")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only an explicit -t replaces the TTL; a sub-minute value set elsewhere
	// would not survive the round trip through minutes.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
