// Package config provides configuration loading, validation, and default
// management for Saturn.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// unset values, environment variables (SATURN_SECTION_FIELD) override file
// values, and the final configuration is validated before use.
//
// Basic usage:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
