package engine

import (
	"path/filepath"
	"strings"
)

// Reason explains a staleness decision.
type Reason string

const (
	ReasonFresh        Reason = "up to date"
	ReasonNewBuild     Reason = "target missing"
	ReasonObjectOlder  Reason = "object older than source"
	ReasonHeaderNewer  Reason = "header newer than object"
	ReasonNoDependency Reason = "no dependency data"
)

// Decision is the verdict for one source file.
type Decision struct {
	Recompile bool
	Reason    Reason
	Header    string // the newer header, for ReasonHeaderNewer
}

// StaleChecker decides whether single sources need recompiling.
type StaleChecker struct {
	Times *TimeOracle
	Deps  interface {
		ReadDeps(path string) ([]string, error)
	}
	// OnDepError is called when a dependency file exists but cannot be read.
	OnDepError func(path string, err error)
}

// Check decides whether src must be recompiled. newBuild is set when the target output is missing.
func (c *StaleChecker) Check(src Source, newBuild bool) Decision {
	if newBuild {
		return Decision{Recompile: true, Reason: ReasonNewBuild}
	}

	srcTime := c.Times.ModTime(src.Path)
	objTime := c.Times.ModTime(src.Obj)
	if objTime < srcTime || objTime == 0 {
		return Decision{Recompile: true, Reason: ReasonObjectOlder}
	}

	headers, err := c.Deps.ReadDeps(src.Dep)
	if err != nil {
		if c.OnDepError != nil {
			c.OnDepError(src.Dep, err)
		}
		return Decision{Reason: ReasonNoDependency}
	}
	if len(headers) == 0 {
		return Decision{Reason: ReasonNoDependency}
	}
	for _, h := range headers {
		if c.Times.ModTime(h) > objTime {
			return Decision{Recompile: true, Reason: ReasonHeaderNewer, Header: h}
		}
	}
	return Decision{Reason: ReasonFresh}
}

// LibOptions holds the library search paths and names found in linker options.
type LibOptions struct {
	Paths []string
	Names []string
}

// ParseLibOptions scans linker options for -L<dir>, -L=<dir>, -L <dir> and the same forms of -l.
func ParseLibOptions(opts []string) LibOptions {
	var fields []string
	for _, opt := range opts {
		fields = append(fields, strings.Fields(opt)...)
	}

	var lo LibOptions
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		var dst *[]string
		switch {
		case strings.HasPrefix(field, "-L"):
			dst = &lo.Paths
		case strings.HasPrefix(field, "-l"):
			dst = &lo.Names
		default:
			continue
		}
		val := strings.TrimPrefix(field[2:], "=")
		if val == "" && i+1 < len(fields) {
			i++
			val = fields[i]
		}
		if val != "" {
			*dst = append(*dst, val)
		}
	}
	return lo
}

// Candidates lists every static and shared library file the options may refer to.
func (lo LibOptions) Candidates() []string {
	var out []string
	for _, dir := range lo.Paths {
		for _, name := range lo.Names {
			base := filepath.Join(dir, "lib"+name)
			out = append(out, base+KindStatic.Ext(), base+KindShared.Ext())
		}
	}
	return out
}

// LibTime returns the newest modification time among the libraries named by opts.
func LibTime(times *TimeOracle, opts []string) Stamp {
	var recent Stamp
	for _, lib := range ParseLibOptions(opts).Candidates() {
		recent = max(recent, times.ModTime(lib))
	}
	return recent
}
