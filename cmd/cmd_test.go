package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qobs-build/bd/internal/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCommandsFor(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{nil, []string{"build"}},
		{[]string{"clean", "build"}, []string{"clean", "build"}},
		{[]string{"bogus", "list", "whatever", "conf"}, []string{"list", "conf"}},
		{[]string{"bogus"}, []string{"build"}},
		{[]string{"build", "build"}, []string{"build", "build"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, commandsFor(tt.args))
		})
	}
}

func TestOSLabel(t *testing.T) {
	assert.Equal(t, "Windows", osLabel("windows"))
	assert.Equal(t, "Apple", osLabel("darwin"))
	assert.Equal(t, "Apple", osLabel("ios"))
	assert.Equal(t, "Android", osLabel("android"))
	assert.Equal(t, "Linux", osLabel("linux"))
	assert.Equal(t, "Posix", osLabel("freebsd"))
	assert.NotEmpty(t, hostLabel())
}

var sampleTargets = []builder.TargetInfo{
	{Name: "app", Kind: "App", Output: "app", ObjDir: "obj", Sources: []string{"src/*.c"}, Cflags: []string{"-Wall", "-O2"}},
	{Name: "demo/one", Kind: "Example"},
}

func TestWriteTargetsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTargets(&buf, "text", sampleTargets, false))
	assert.Equal(t, "[app] : App\n[demo/one] : Example\n", buf.String())

	buf.Reset()
	require.NoError(t, writeTargets(&buf, "text", sampleTargets[:1], true))
	assert.Contains(t, buf.String(), "    cflags:  -Wall -O2\n")
	assert.Contains(t, buf.String(), "    sources: src/*.c\n")
}

func TestWriteTargetsStructured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTargets(&buf, "yaml", sampleTargets, true))
	var fromYAML []builder.TargetInfo
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, sampleTargets, fromYAML)

	buf.Reset()
	require.NoError(t, writeTargets(&buf, "json", nil, false))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	require.NoError(t, writeTargets(&buf, "json", sampleTargets[1:], false))
	var fromJSON []builder.TargetInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, sampleTargets[1:], fromJSON)
}

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("text", map[string]string{"text": "", "yaml": "", "json": ""})
	assert.Equal(t, "[json, text, yaml]", e.HelpString())
	assert.NoError(t, e.Set("yaml"))
	assert.Equal(t, "yaml", e.Value())
	assert.Error(t, e.Set("xml"))
	assert.Equal(t, "yaml", e.Value())
}

func TestInitWritesLoadableConfig(t *testing.T) {
	for _, lib := range []bool{false, true} {
		dir := filepath.Join(t.TempDir(), "hello")
		mkdir(dir)
		initIn(dir, lib)

		b, err := builder.NewBuilderInDirectory(dir, "")
		require.NoError(t, err)
		require.NotEmpty(t, b.Projects())
		assert.Equal(t, "hello", b.Projects()[0].Name)
		assert.FileExists(t, filepath.Join(dir, ".gitignore"))
	}
}
