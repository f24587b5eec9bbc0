package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/qobs-build/bd/internal/msg"
)

var ErrHalted = errors.New("build halted by an earlier failure")

// Session is the state of one build or clean run. It is not safe for concurrent use; the
// compile workers it starts only touch their own job.
type Session struct {
	Dir       string // project root; relative paths resolve against it
	Jobs      int    // parallel compile jobs per link unit, <= 1 means sequential
	Toolchain Toolchain
	Exec      Executor
	Discover  Discoverer
	Out       *msg.Printer

	// BeforeProject runs ahead of each project in Build. An error fails that project only.
	BeforeProject func(i int, p *Project) error

	times *TimeOracle
	stale *StaleChecker

	// current link unit
	objects PathSet
	lang    Lang

	status     int
	toolStatus bool // status came from an external tool
	halted     bool
}

// NewSession prepares a session rooted at dir.
func NewSession(dir string, tc Toolchain, out *msg.Printer) *Session {
	if out == nil {
		out = msg.NewPrinter(io.Discard, true, true, false)
	}
	s := &Session{
		Dir:       dir,
		Jobs:      1,
		Toolchain: tc,
		Exec:      ProcessExecutor{},
		Discover:  GlobDiscoverer{Root: dir},
		Out:       out,
	}
	s.times = &TimeOracle{
		Root: dir,
		OnError: func(path string, err error) {
			s.Out.Error("%s: failed to get modification time: %v", path, err)
		},
	}
	s.stale = &StaleChecker{
		Times: s.times,
		Deps:  DepReader{Root: dir},
		OnDepError: func(path string, err error) {
			s.Out.Debug("unreadable dependency file", "path", path, "err", err)
		},
	}
	return s
}

// Status is the process exit status the run should end with.
func (s *Session) Status() int { return s.status }

// Halted reports whether a toolchain failure stopped the run.
func (s *Session) Halted() bool { return s.halted }

// Objects returns the objects accumulated for the link unit in progress.
func (s *Session) Objects() PathSet { return s.objects.Clone() }

// fail records a failure that does not stop other projects.
func (s *Session) fail(err error) {
	s.Out.Error("%v", err)
	if s.status == 0 {
		s.status = 1
	}
}

// Fail records a failure found outside the engine, like a failing project script. Later
// projects still run.
func (s *Session) Fail(err error) { s.fail(err) }

// toolFailed records a toolchain failure and stops the run.
func (s *Session) toolFailed(err error) error {
	var te *ToolError
	code := 1
	if errors.As(err, &te) {
		code = te.Code
		s.Out.Error("%s: %v", te.Cmd, te.Err)
	} else {
		s.Out.Error("%v", err)
	}
	if !s.toolStatus {
		s.status = code
		s.toolStatus = true
	}
	s.halted = true
	return err
}

func (s *Session) resetUnit() {
	s.objects.Reset()
	s.lang = LangUnselected
}

func (s *Session) resolve(path string) string {
	if s.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}

// mkdir creates dir below the root if needed.
func (s *Session) mkdir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(s.resolve(dir), 0o755)
}
