package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrNoSourceExt = errors.New("not a C or C++ source file")

// source extensions, longest first
var (
	cExts   = []string{".c"}
	cxxExts = []string{".cpp", ".cc"}
)

// Source is a discovered source file with its derived paths.
type Source struct {
	Path    string // as discovered
	Obj     string // {objdir}/{stem}.o
	Dep     string // {objdir}/{stem}.d
	Target  string // target name (not the output file)
	Lang    Lang
	Project *Project
}

// Stem returns the file name of src without directory and source extension.
func Stem(src string) (string, error) {
	base := src
	if i := strings.LastIndexAny(src, `/`+string(filepath.Separator)); i >= 0 {
		base = src[i+1:]
	}
	for _, ext := range append(cxxExts, cExts...) {
		if stem, ok := strings.CutSuffix(base, ext); ok && stem != "" {
			return stem, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSourceExt, src)
}

// LangOf returns the language a source file selects.
func LangOf(src string) Lang {
	for _, ext := range cxxExts {
		if strings.HasSuffix(src, ext) {
			return LangCxx
		}
	}
	return LangC
}

// Resolve derives object, dependency and target paths for one discovered source.
func (p *Project) Resolve(src string) (Source, error) {
	stem, err := Stem(src)
	if err != nil {
		return Source{}, err
	}
	obj := filepath.Join(p.ObjDir, stem)
	s := Source{
		Path:    src,
		Obj:     obj + ".o",
		Dep:     obj + ".d",
		Target:  p.Name,
		Lang:    LangOf(src),
		Project: p,
	}
	if p.Kind == KindExamples {
		if p.Name != "" {
			s.Target = p.Name + "/" + stem
		} else {
			s.Target = stem
		}
	}
	return s, nil
}
