package config

import (
	"os"

	"go.uber.org/fx"
)

// Module loads the configuration file named by PGKEEPER_CONFIG, falling back
// to pgkeeper.yaml in the working directory. A nil *Config is provided when
// the file is absent, so commands that work without configuration (help,
// version, DSN-only connections) still run.
var Module = fx.Module("config", fx.Provide(
	func() (*Config, error) {
		path := os.Getenv("PGKEEPER_CONFIG")
		if path == "" {
			path = DefaultFile
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
		return LoadConfigFile(path)
	},
))
