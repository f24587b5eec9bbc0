package builder

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/qobs-build/bd/internal/engine"
	"github.com/qobs-build/bd/internal/msg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExec writes whatever file follows -o (or the archive for ar) and records the command.
type recordingExec struct {
	t    *testing.T
	cmds []engine.Command
}

func (r *recordingExec) Run(dir string, cmd engine.Command, out io.Writer) error {
	r.cmds = append(r.cmds, cmd)
	target := ""
	if i := slices.Index(cmd.Args, "-o"); i >= 0 && i+1 < len(cmd.Args) {
		target = cmd.Args[i+1]
	} else if len(cmd.Args) > 1 {
		target = cmd.Args[1]
	}
	full := filepath.Join(dir, target)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	return os.WriteFile(full, []byte(cmd.String()), 0o644)
}

const projectConfig = `
[toolchain]
cc = "cc-test"
cxx = "cxx-test"
ar = "ar-test"

[[project]]
name = "broken"
sources = ["src/*.c"]
script = 'target_os == "none"'

[[project]]
name = "bin/app"
sources = ["src/*.c"]

[[project]]
name = "demo"
kind = "examples"
objdir = "obj/demo"
sources = ["examples/*.cpp"]
`

func newTestBuilder(t *testing.T) (*Builder, *engine.Session, *recordingExec, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	writeConfig(t, dir, "bd.toml", projectConfig)
	writeConfig(t, dir, "src/main.c", "")
	writeConfig(t, dir, "examples/one.cpp", "")
	writeConfig(t, dir, "examples/two.cpp", "")

	b, err := NewBuilderInDirectory(dir, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	s := b.NewSession(msg.NewPrinter(&buf, false, false, false), 1)
	rec := &recordingExec{t: t}
	s.Exec = rec
	return b, s, rec, &buf
}

func TestBuilderBuild(t *testing.T) {
	b, s, rec, out := newTestBuilder(t)
	require.Len(t, b.Projects(), 3)
	assert.Equal(t, filepath.Join(b.Dir(), "bd.toml"), b.ConfigPath())

	status := b.Build(s)

	assert.Equal(t, 1, status, "a failing script fails the run")
	assert.False(t, s.Halted(), "but later projects are still built")
	assert.Contains(t, out.String(), `script for project "broken" returned false`)

	names := make([]string, len(rec.cmds))
	for i, c := range rec.cmds {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"cc-test", "cc-test", "cxx-test", "cxx-test", "cxx-test", "cxx-test"}, names)
	assert.FileExists(t, filepath.Join(b.Dir(), (&engine.Project{Kind: engine.KindApp}).TargetPath("bin/app")))
	assert.FileExists(t, filepath.Join(b.Dir(), (&engine.Project{Kind: engine.KindExamples}).TargetPath("demo/two")))
}

func TestBuilderClean(t *testing.T) {
	b, s, _, _ := newTestBuilder(t)
	b.Build(s)

	s = b.NewSession(msg.NewPrinter(io.Discard, true, false, false), 1)
	assert.Equal(t, 0, b.Clean(s))
	assert.NoDirExists(t, filepath.Join(b.Dir(), "obj", "bin", "app"))
	assert.NoDirExists(t, filepath.Join(b.Dir(), "obj", "demo"))
	assert.NoFileExists(t, filepath.Join(b.Dir(), (&engine.Project{Kind: engine.KindApp}).TargetPath("bin/app")))
	assert.FileExists(t, filepath.Join(b.Dir(), "src", "main.c"))
}

func TestBuilderTargets(t *testing.T) {
	b, s, rec, _ := newTestBuilder(t)

	targets := b.Targets(s, false)
	assert.Equal(t, []TargetInfo{
		{Name: "broken", Kind: "App"},
		{Name: "bin/app", Kind: "App"},
		{Name: "demo/one", Kind: "Example"},
		{Name: "demo/two", Kind: "Example"},
	}, targets)
	assert.Empty(t, rec.cmds)

	detailed := b.Targets(s, true)
	require.Len(t, detailed, 4)
	assert.Equal(t, filepath.Join("obj", "demo"), detailed[2].ObjDir)
	assert.Equal(t, []string{"examples/*.cpp"}, detailed[2].Sources)
}

func TestNewBuilderInDirectoryErrors(t *testing.T) {
	_, err := NewBuilderInDirectory(t.TempDir(), "")
	assert.Error(t, err)

	dir := t.TempDir()
	writeConfig(t, dir, "custom.yaml", "project:\n  - name: x\n    kind: nope\n")
	_, err = NewBuilderInDirectory(dir, "custom.yaml")
	assert.ErrorContains(t, err, "unknown project kind")
}
