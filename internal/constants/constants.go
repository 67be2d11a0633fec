// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs and metadata.
const AppName = "manifest-fetcher"

// CommandName is the primary CLI command name.
const CommandName = "mfetch"

// DefaultConfigFile is the config file looked up when --config is not given.
const DefaultConfigFile = "mfetch.json"

// EnvPrefix prefixes every environment override read by the config layer.
const EnvPrefix = "MFETCH"
