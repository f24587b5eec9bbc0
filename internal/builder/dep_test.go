package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitURL(t *testing.T) {
	tests := []struct {
		raw  string
		want gitURL
	}{
		{"https://github.com/someone/something", gitURL{cleanURL: "https://github.com/someone/something.git"}},
		{"https://github.com/someone/something@master#0.1.0", gitURL{"https://github.com/someone/something.git", "master", "0.1.0"}},
		{"https://github.com/someone/something.git#12345abc", gitURL{cleanURL: "https://github.com/someone/something.git", commitOrTag: "12345abc"}},
		{"https://user@example.com/repo@dev", gitURL{cleanURL: "https://user@example.com/repo.git", branch: "dev"}},
		{"git@github.com:someone/something.git@feature-branch", gitURL{cleanURL: "git@github.com:someone/something.git", branch: "feature-branch"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGitURL(tt.raw))
		})
	}
}

func TestRemoteURL(t *testing.T) {
	url, err := remoteURL("gh:someone/libhello")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/someone/libhello", url)

	url, err = remoteURL("git:https://example.com/x.git")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x.git", url)

	url, err = remoteURL("vendor/zlib")
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = remoteURL("https://example.com/x.tar.gz")
	assert.ErrorIs(t, err, errArchiveUnsupported)

	_, err = remoteURL("")
	assert.ErrorIs(t, err, errIllegalDep)
}

func TestFetchDependenciesLocalAndPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "zlib"), 0o755))
	// an already cloned remote is not fetched again
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deps", "fmt"), 0o755))

	paths, err := FetchDependencies(dir, DefaultDepsDir, map[string]string{
		"zlib": "vendor/zlib",
		"fmt":  "gh:fmtlib/fmt",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"zlib": filepath.Join(dir, "vendor", "zlib"),
		"fmt":  filepath.Join(dir, "deps", "fmt"),
	}, paths)
}

func TestFetchDependenciesReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()

	paths, err := FetchDependencies(dir, DefaultDepsDir, map[string]string{
		"missing": "vendor/missing",
		"archive": "https://example.com/a.zip",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing"`)
	assert.Contains(t, err.Error(), `"archive"`)
	assert.Empty(t, paths)
}
