package config

import "fmt"

type ConfigFileInvalidError struct {
	Path string
	Err  error
}

func (invalid *ConfigFileInvalidError) Error() string {
	return fmt.Sprintf("Configuration file %s is invalid: %s", invalid.Path, invalid.Err)
}

func (invalid *ConfigFileInvalidError) Unwrap() error {
	return invalid.Err
}

type ConfigFileExistsError struct {
	Path string
}

func (exists *ConfigFileExistsError) Error() string {
	return fmt.Sprintf("Configuration file already exists: %s", exists.Path)
}
