// Package artifact stores fetched manifest files in a game's working directory.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type Outcome int

const (
	Written Outcome = iota
	Skipped
)

func (outcome Outcome) String() string {
	switch outcome {
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(outcome))
	}
}

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Writer never overwrites: a file already present is reported as Skipped. Writes are not atomic,
// so a file truncated by a crash also counts as present on the next run.
type Writer struct {
	fs afero.Fs
}

func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs}
}

// Exists reports whether name is already stored under dir.
func (writer *Writer) Exists(dir string, name string) (bool, error) {
	target, err := targetPath(dir, name)
	if err != nil {
		return false, err
	}
	return afero.Exists(writer.fs, target)
}

func (writer *Writer) Save(dir string, name string, data []byte) (Outcome, error) {
	target, err := targetPath(dir, name)
	if err != nil {
		return Skipped, err
	}

	exists, err := afero.Exists(writer.fs, target)
	if err != nil {
		return Skipped, fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if exists {
		return Skipped, nil
	}

	if err := writer.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return Skipped, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}

	resolved, err := ResolveWritablePath(writer.fs, dir, target)
	if err != nil {
		return Skipped, err
	}

	if err := afero.WriteFile(writer.fs, resolved, data, filePerm); err != nil {
		return Skipped, fmt.Errorf("failed to write %s: %w", resolved, err)
	}
	return Written, nil
}
