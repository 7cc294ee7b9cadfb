package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays MODHUB_* environment variables. Unset variables keep the
// current value. A malformed value panics.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
