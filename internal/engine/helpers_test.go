package engine

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qobs-build/bd/internal/msg"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeToolchain pretends to be gcc and ar: it records every command and writes the files a
// real toolchain would, stamping each with a strictly increasing time.
type fakeToolchain struct {
	t       *testing.T
	mu      sync.Mutex
	clock   time.Time
	headers map[string][]string // source -> headers written into its .d file
	failOn  map[string]bool     // source or output path that makes the command fail
	cmds    []Command
}

func newFakeToolchain(t *testing.T) *fakeToolchain {
	return &fakeToolchain{
		t:       t,
		clock:   baseTime,
		headers: make(map[string][]string),
		failOn:  make(map[string]bool),
	}
}

func (f *fakeToolchain) Run(dir string, cmd Command, out io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)

	if slices.Contains(cmd.Args, "-c") {
		src := cmd.Args[len(cmd.Args)-1]
		obj := argAfter(cmd.Args, "-o")
		if f.failOn[src] {
			return &ToolError{Cmd: cmd, Code: 2, Err: errors.New("exit status 2")}
		}
		f.write(dir, obj, "object of "+src)

		var dep strings.Builder
		dep.WriteString(obj + ": " + src)
		for _, h := range f.headers[src] {
			dep.WriteString(" \\\n " + h)
		}
		dep.WriteString("\n")
		for _, h := range f.headers[src] {
			dep.WriteString("\n" + h + ":\n")
		}
		f.write(dir, strings.TrimSuffix(obj, ".o")+".d", dep.String())
		return nil
	}

	target := argAfter(cmd.Args, "-o")
	if cmd.Name == "ar" {
		target = cmd.Args[1]
	}
	if f.failOn[target] {
		return &ToolError{Cmd: cmd, Code: 1, Err: errors.New("exit status 1")}
	}
	f.write(dir, target, "linked")
	return nil
}

func (f *fakeToolchain) write(dir, path, content string) {
	full := filepath.Join(dir, path)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(f.t, os.WriteFile(full, []byte(content), 0o644))
	f.clock = f.clock.Add(time.Second)
	require.NoError(f.t, os.Chtimes(full, f.clock, f.clock))
}

// tick returns a time later than anything written so far.
func (f *fakeToolchain) tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeToolchain) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = nil
}

func (f *fakeToolchain) compiles() []Command {
	var out []Command
	for _, c := range f.cmds {
		if slices.Contains(c.Args, "-c") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeToolchain) links() []Command {
	var out []Command
	for _, c := range f.cmds {
		if !slices.Contains(c.Args, "-c") {
			out = append(out, c)
		}
	}
	return out
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

var testToolchain = Toolchain{CC: "gcc", CXX: "g++", AR: "ar"}

// newTestSession returns a session rooted at a temp dir driving a fake toolchain.
func newTestSession(t *testing.T) (*Session, *fakeToolchain, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	fake := newFakeToolchain(t)
	out := msg.NewPrinter(&buf, false, false, false)
	out.SetLogger(slog.New(slog.NewTextHandler(testLogWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})))
	s := NewSession(t.TempDir(), testToolchain, out)
	s.Exec = fake
	return s, fake, &buf
}

// testLogWriter sends debug logs to the test log.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// writeFile creates a file below root with a modification time before anything the fake
// toolchain writes.
func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	old := baseTime.Add(-time.Hour)
	require.NoError(t, os.Chtimes(full, old, old))
}

func touch(t *testing.T, root, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(filepath.Join(root, path), when, when))
}
