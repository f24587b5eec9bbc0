package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRemovesBuildOutputs(t *testing.T) {
	s, _, out := newTestSession(t)
	writeFile(t, s.Dir, "src/a.c", "")
	writeFile(t, s.Dir, "ex/demo.c", "")
	app := &Project{Name: "out/app", Kind: KindApp, ObjDir: "obj/app", Sources: []string{"src/*.c"}}
	ex := &Project{Name: "out", Kind: KindExamples, ObjDir: "obj/ex", Sources: []string{"ex/*.c"}}
	require.Equal(t, 0, s.Build([]*Project{app, ex}))
	require.FileExists(t, filepath.Join(s.Dir, app.TargetPath("out/app")))

	out.Reset()
	assert.Equal(t, 0, s.Clean([]*Project{app, ex}))

	assert.NoDirExists(t, filepath.Join(s.Dir, "obj", "app"))
	assert.NoDirExists(t, filepath.Join(s.Dir, "obj", "ex"))
	assert.NoFileExists(t, filepath.Join(s.Dir, app.TargetPath("out/app")))
	assert.NoFileExists(t, filepath.Join(s.Dir, ex.TargetPath("out/demo")))
	assert.FileExists(t, filepath.Join(s.Dir, "src", "a.c"))
	assert.Contains(t, out.String(), "remove")
}

func TestCleanNothingToRemove(t *testing.T) {
	s, _, _ := newTestSession(t)
	p := appProject("*.c")

	assert.Equal(t, 0, s.Clean([]*Project{p}))
	assert.Zero(t, s.Status())
}

func TestCleanNeverRemovesCurrentDirectory(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeFile(t, s.Dir, "a.c", "")
	writeFile(t, s.Dir, "a.o", "")
	p := &Project{Name: "app", Kind: KindApp, ObjDir: ".", Sources: []string{"a.c"}}

	a, err := s.Artifacts(p)
	require.NoError(t, err)
	assert.NotContains(t, a.Paths(), ".")

	assert.Equal(t, 0, s.Clean([]*Project{p}))
	assert.DirExists(t, s.Dir)
	assert.FileExists(t, filepath.Join(s.Dir, "a.c"))
	assert.NoFileExists(t, filepath.Join(s.Dir, "a.o"))
}

func TestTargetNames(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeFile(t, s.Dir, "ex/one.c", "")
	writeFile(t, s.Dir, "ex/two.cpp", "")

	names, err := s.TargetNames(&Project{Name: "bin", Kind: KindExamples, Sources: []string{"ex/*.c", "ex/*.cpp"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/one", "bin/two"}, names)

	names, err = s.TargetNames(&Project{Name: "lib", Kind: KindStatic})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib"}, names)
}
