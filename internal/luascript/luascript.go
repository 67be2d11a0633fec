// Package luascript assembles the loader script that registers an app, its depot keys and the
// manifests stored next to it.
package luascript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meza/manifest-fetcher/internal/keyfile"
	"github.com/spf13/afero"
)

const manifestSuffix = ".manifest"

// FileName is the script name for an app: {appid}.lua.
func FileName(appID string) string {
	return appID + ".lua"
}

// Build renders the script. Manifest names that do not look like {depot}_{manifest}.manifest are
// ignored.
func Build(appID string, depots []keyfile.DepotRecord, manifestNames []string) string {
	byDepot := groupManifests(manifestNames)

	var builder strings.Builder
	fmt.Fprintf(&builder, "addappid(%s)\n", appID)
	for _, depot := range depots {
		fmt.Fprintf(&builder, "addappid(%s,1,%q)\n", depot.DepotID, depot.DecryptionKey)
		for _, manifestID := range byDepot[depot.DepotID] {
			fmt.Fprintf(&builder, "setManifestid(%s,%q,0)\n", depot.DepotID, manifestID)
		}
	}
	return builder.String()
}

func groupManifests(names []string) map[string][]string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	grouped := make(map[string][]string)
	for _, name := range sorted {
		depotID, manifestID, ok := ParseManifestName(name)
		if !ok {
			continue
		}
		grouped[depotID] = append(grouped[depotID], manifestID)
	}
	return grouped
}

// ParseManifestName splits "{depot}_{manifest}.manifest" into its two ids.
func ParseManifestName(name string) (string, string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, manifestSuffix) {
		return "", "", false
	}
	depotID, manifestID, ok := strings.Cut(strings.TrimSuffix(base, manifestSuffix), "_")
	if !ok || depotID == "" || manifestID == "" {
		return "", "", false
	}
	return depotID, manifestID, true
}

// ListManifests returns the manifest file names directly inside dir.
func ListManifests(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Write builds the script from the manifests on disk and stores it as dir/{appid}.lua, replacing any
// previous script. It returns the written path.
func Write(fs afero.Fs, dir string, appID string, depots []keyfile.DepotRecord) (string, error) {
	names, err := ListManifests(fs, dir)
	if err != nil {
		return "", err
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	target := filepath.Join(dir, FileName(appID))
	if err := afero.WriteFile(fs, target, []byte(Build(appID, depots, names)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}
