// Package config loads the real-time client configuration from YAML.
//
// Secrets are referenced as ${VAR} and expanded from the environment at
// load time. Defaults and validation are applied by LoadAndValidate.
package config
