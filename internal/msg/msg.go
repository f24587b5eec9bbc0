package msg

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

func Error(format string, a ...any) {
	fmt.Print(color.HiRedString("error"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Warn(format string, a ...any) {
	fmt.Print(color.YellowString("warn"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Fatal(format string, a ...any) {
	fmt.Print(color.RedString("fatal"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
	os.Exit(1)
}

func Info(format string, a ...any) {
	fmt.Print(color.HiGreenString("info"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

// Step kinds, each printed with its own colour.
type Step int

const (
	StepCompile Step = iota
	StepLink
	StepUpToDate
	StepClean
)

var stepColors = map[Step]func(format string, a ...interface{}) string{
	StepCompile:  color.HiCyanString,
	StepLink:     color.HiYellowString,
	StepUpToDate: color.HiGreenString,
	StepClean:    color.HiMagentaString,
}

// Printer writes the status lines of one build session.
type Printer struct {
	W       io.Writer
	Quiet   bool // no status lines
	NoErr   bool // no error text
	Verbose bool

	mu  sync.Mutex
	log *slog.Logger
}

func NewPrinter(w io.Writer, quiet, noerr, verbose bool) *Printer {
	p := &Printer{W: w, Quiet: quiet, NoErr: noerr, Verbose: verbose}
	if verbose {
		p.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		p.log = slog.New(slog.DiscardHandler)
	}
	return p
}

// SetLogger replaces the debug logger, mostly for tests.
func (p *Printer) SetLogger(l *slog.Logger) { p.log = l }

// Status prints "[name] text" with the name coloured by step.
func (p *Printer) Status(step Step, name, text string) {
	if p.Quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.W, "[%s] %s\n", stepColors[step]("%s", name), text)
}

// UpToDate prints the "is up to date" line for a target.
func (p *Printer) UpToDate(name string) {
	if p.Quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.W, "[%s] is up to date\n", stepColors[StepUpToDate]("%s", name))
}

func (p *Printer) Error(format string, a ...any) {
	if p.NoErr {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.W, color.HiRedString("[ERROR]"))
	fmt.Fprint(p.W, " ")
	fmt.Fprintf(p.W, format, a...)
	fmt.Fprint(p.W, "\n")
}

func (p *Printer) Warn(format string, a ...any) {
	if p.Quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.W, color.YellowString("warn"))
	fmt.Fprint(p.W, ": ")
	fmt.Fprintf(p.W, format, a...)
	fmt.Fprint(p.W, "\n")
}

func (p *Printer) Debug(text string, args ...any) {
	p.log.Debug(text, args...)
}

// Output returns where child process output should go.
func (p *Printer) Output() io.Writer {
	if p.Verbose {
		return &IndentWriter{Indent: "    ", W: p.W}
	}
	return p.W
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			w.W.Write([]byte(w.Indent))
			w.didIndent = true
		}
		w.W.Write([]byte{c}) // FIXME-perf: buffer this
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
