package engine

import (
	"runtime"
	"strings"
)

// Lang is the driver selection of a link unit. It only ever moves up: once C++ is seen the
// unit links with the C++ driver.
type Lang int

const (
	LangUnselected Lang = iota
	LangC
	LangCxx
)

func (l Lang) Merge(other Lang) Lang { return max(l, other) }

func (l Lang) String() string {
	switch l {
	case LangC:
		return "c"
	case LangCxx:
		return "c++"
	}
	return "none"
}

// Toolchain names the programs used for compiling, linking and archiving.
type Toolchain struct {
	CC  string
	CXX string
	AR  string
}

// Driver returns the compiler driver for lang; an unselected unit uses the C driver.
func (tc Toolchain) Driver(lang Lang) string {
	if lang == LangCxx {
		return tc.CXX
	}
	return tc.CC
}

// For returns the toolchain with a project's overrides applied.
func (tc Toolchain) For(p *Project) Toolchain {
	if p.CC != "" {
		tc.CC = p.CC
	}
	if p.CXX != "" {
		tc.CXX = p.CXX
	}
	return tc
}

// Command is a program invocation. Arguments are passed without a shell.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(quoteArg(c.Name))
	for _, a := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(quoteArg(a))
	}
	return sb.String()
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\"'") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// PlatformDefine is the preprocessor define identifying the host OS.
func PlatformDefine() string {
	return "-DBD_OS_" + strings.ToUpper(runtime.GOOS)
}

// splitOpts splits option strings on whitespace so "-O2 -g" and ["-O2", "-g"] are equivalent.
func splitOpts(opts []string) []string {
	var out []string
	for _, o := range opts {
		out = append(out, strings.Fields(o)...)
	}
	return out
}

// libArgs rewrites -L=dir and -l=name into the forms a compiler driver accepts.
func libArgs(opts []string) []string {
	out := splitOpts(opts)
	for i, o := range out {
		if strings.HasPrefix(o, "-L=") || strings.HasPrefix(o, "-l=") {
			out[i] = o[:2] + o[3:]
		}
	}
	return out
}

// CompileCommand builds the command compiling src into obj. The compiler also writes the
// dependency file next to the object.
func CompileCommand(kind Kind, tc Toolchain, cflags []string, obj, src string) Command {
	args := []string{"-c", "-MMD", "-MP"}
	if kind == KindShared {
		args = append(args, "-fPIC")
	}
	args = append(args, PlatformDefine())
	args = append(args, splitOpts(cflags)...)
	args = append(args, "-o", obj, src)
	return Command{Name: tc.Driver(LangOf(src)), Args: args}
}

// LinkCommand builds the command producing out from objs.
func LinkCommand(kind Kind, tc Toolchain, lang Lang, ldflags []string, out string, objs []string, libs []string) Command {
	switch kind {
	case KindStatic:
		args := []string{"rcs", out}
		args = append(args, objs...)
		return Command{Name: tc.AR, Args: args}
	case KindShared:
		args := []string{"-shared", "-fPIC"}
		args = append(args, splitOpts(ldflags)...)
		args = append(args, "-o", out)
		args = append(args, objs...)
		args = append(args, libArgs(libs)...)
		return Command{Name: tc.Driver(lang), Args: args}
	default:
		args := splitOpts(ldflags)
		args = append(args, "-o", out)
		args = append(args, objs...)
		args = append(args, libArgs(libs)...)
		return Command{Name: tc.Driver(lang), Args: args}
	}
}
