package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

const (
	tempSuffix   = ".mfetch.tmp"
	backupSuffix = ".mfetch.bak"
)

// configWriter replaces a config file through a sibling temp file, so a reader sees either the
// old file or the new one. With backup set, the file being replaced is copied next to it first.
type configWriter struct {
	fs     afero.Fs
	backup bool
}

// write returns the backup path when a previous file was saved.
func (writer configWriter) write(path string, data []byte) (string, error) {
	temp := path + tempSuffix
	if err := removeIfExists(writer.fs, temp); err != nil {
		return "", fmt.Errorf("failed to clear stale %s: %w", temp, err)
	}
	if err := afero.WriteFile(writer.fs, temp, data, 0o644); err != nil {
		return "", err
	}

	saved, err := writer.saveBackup(path)
	if err != nil {
		return "", discardTemp(writer.fs, temp, err)
	}
	if err := writer.fs.Rename(temp, path); err != nil {
		return "", discardTemp(writer.fs, temp, err)
	}
	return saved, nil
}

func (writer configWriter) saveBackup(path string) (string, error) {
	if !writer.backup {
		return "", nil
	}
	previous, err := afero.ReadFile(writer.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backup := path + backupSuffix
	if err := afero.WriteFile(writer.fs, backup, previous, 0o644); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return backup, nil
}

func removeIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func discardTemp(fs afero.Fs, temp string, cause error) error {
	if err := removeIfExists(fs, temp); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to remove %s: %w", temp, err))
	}
	return cause
}
