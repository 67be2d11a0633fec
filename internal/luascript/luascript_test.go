package luascript

import (
	"path/filepath"
	"testing"

	"github.com/meza/manifest-fetcher/internal/keyfile"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTwoManifestsForOneDepot(t *testing.T) {
	depots := []keyfile.DepotRecord{{DepotID: "123", DecryptionKey: "abc"}}

	script := Build("120", depots, []string{"123_222.manifest", "123_111.manifest"})

	assert.Equal(t, "addappid(120)\n"+
		"addappid(123,1,\"abc\")\n"+
		"setManifestid(123,\"111\",0)\n"+
		"setManifestid(123,\"222\",0)\n", script)
}

func TestBuildKeepsDepotOrderAndIgnoresForeignFiles(t *testing.T) {
	depots := []keyfile.DepotRecord{
		{DepotID: "456", DecryptionKey: "def"},
		{DepotID: "123", DecryptionKey: "abc"},
	}

	script := Build("100", depots, []string{"123_1.manifest", "notes.txt", "bad.manifest", "789_9.manifest", "456_4.manifest"})

	assert.Equal(t, "addappid(100)\n"+
		"addappid(456,1,\"def\")\n"+
		"setManifestid(456,\"4\",0)\n"+
		"addappid(123,1,\"abc\")\n"+
		"setManifestid(123,\"1\",0)\n", script)
}

func TestBuildWithoutDepots(t *testing.T) {
	assert.Equal(t, "addappid(7)\n", Build("7", nil, nil))
}

func TestParseManifestName(t *testing.T) {
	depot, manifest, ok := ParseManifestName("dir/731_5520155637053275853.manifest")
	assert.True(t, ok)
	assert.Equal(t, "731", depot)
	assert.Equal(t, "5520155637053275853", manifest)

	for _, name := range []string{"731.manifest", "_1.manifest", "731_.manifest", "731_1.txt"} {
		_, _, ok := ParseManifestName(name)
		assert.False(t, ok, name)
	}
}

func TestWriteListsManifestsAndWritesScript(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := filepath.Join("out", "[120]Game")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "123_111.manifest"), []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "123_222.manifest"), []byte("b"), 0o644))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "nested.manifest"), 0o755))

	path, err := Write(fs, dir, "120", []keyfile.DepotRecord{{DepotID: "123", DecryptionKey: "abc"}})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "120.lua"), path)
	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "addappid(120)\naddappid(123,1,\"abc\")\nsetManifestid(123,\"111\",0)\nsetManifestid(123,\"222\",0)\n", string(content))
}

func TestWriteCreatesMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	path, err := Write(fs, "fresh", "5", nil)

	require.NoError(t, err)
	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "addappid(5)\n", string(content))
}
