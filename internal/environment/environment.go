// Package environment reads runtime environment configuration.
package environment

import (
	"os"
)

const (
	defaultSearchURL = "https://steamui.com"
	defaultAPIURL    = "https://api.github.com/"
)

// SearchURL is the base URL of the game search helper.
func SearchURL() string {
	value, present := os.LookupEnv("MFETCH_SEARCH_URL")
	if present && value != "" {
		return value
	}

	return defaultSearchURL
}

// APIURL is the base URL of the hosting API that serves branches and trees.
func APIURL() string {
	value, present := os.LookupEnv("MFETCH_API_URL")
	if present && value != "" {
		return value
	}

	return defaultAPIURL
}

func AppVersion() string {
	return "REPL_VERSION"
}

func HelpURL() string {
	return "REPL_HELP_URL"
}
