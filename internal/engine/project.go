package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Kind is what a project produces.
type Kind int

const (
	KindApp Kind = iota
	KindExamples
	KindStatic
	KindShared
)

var kindNames = map[Kind]string{
	KindApp:      "app",
	KindExamples: "examples",
	KindStatic:   "static",
	KindShared:   "shared",
}

// ParseKind accepts the names used in configuration files.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	if s == "" {
		return KindApp, nil
	}
	return 0, fmt.Errorf("unknown project kind %q (want app, examples, static or shared)", s)
}

func (k Kind) String() string { return kindNames[k] }

// Label is the capitalised name shown by `list`.
func (k Kind) Label() string {
	switch k {
	case KindApp:
		return "App"
	case KindExamples:
		return "Example"
	case KindStatic:
		return "Static"
	case KindShared:
		return "Shared"
	}
	return "?"
}

// Ext returns the platform file extension of a target of this kind.
func (k Kind) Ext() string {
	return kindExt(k, runtime.GOOS)
}

func kindExt(k Kind, goos string) string {
	switch k {
	case KindStatic:
		return ".a"
	case KindShared:
		if goos == "windows" {
			return ".dll"
		}
		return ".so"
	default:
		if goos == "windows" {
			return ".exe"
		}
		return ""
	}
}

// IsLib reports whether targets of this kind are libraries.
func (k Kind) IsLib() bool { return k == KindStatic || k == KindShared }

// Project is one declared buildable unit. It is read-only during a run.
type Project struct {
	Name    string
	Kind    Kind
	ObjDir  string
	Sources []string // glob patterns, in order
	Cflags  []string
	Ldflags []string
	Libs    []string // -L / -l options
	CC      string   // optional override
	CXX     string   // optional override
}

// TargetPath returns the output file for a target name: libraries get a "lib" prefix,
// every kind gets its platform extension.
func (p *Project) TargetPath(name string) string {
	if p.Kind.IsLib() {
		dir, base := filepath.Split(name)
		name = dir + "lib" + base
	}
	return name + p.Kind.Ext()
}
