package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/qobs-build/bd/internal/msg"
)

// Artifacts is everything a build of one project writes.
type Artifacts struct {
	ObjDir  string
	Targets PathSet // output files
	Objects PathSet // object and dependency files
}

// Paths lists the removal order: object directory, targets, then derived files.
func (a Artifacts) Paths() []string {
	var out []string
	if a.ObjDir != "" && filepath.Clean(a.ObjDir) != "." {
		out = append(out, a.ObjDir)
	}
	out = append(out, a.Targets...)
	out = append(out, a.Objects...)
	return out
}

// Artifacts computes the files the build would produce for p, using the same discovery and
// path derivation as the build. Discovery failures are returned alongside what could be derived.
func (s *Session) Artifacts(p *Project) (Artifacts, error) {
	a := Artifacts{ObjDir: p.ObjDir}
	if p.Kind != KindExamples {
		a.Targets.Add(p.TargetPath(p.Name))
	}

	var errs []error
	for _, pat := range p.Sources {
		files, err := s.Discover.Discover(pat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range files {
			src, err := p.Resolve(f)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			a.Objects.AddUnique(src.Obj)
			a.Objects.AddUnique(src.Dep)
			if p.Kind == KindExamples {
				a.Targets.AddUnique(p.TargetPath(src.Target))
			}
		}
	}
	return a, errors.Join(errs...)
}

// Clean removes the artifacts of every project and returns the exit status.
func (s *Session) Clean(projects []*Project) int {
	for _, p := range projects {
		s.CleanProject(p)
	}
	return s.status
}

// CleanProject removes what building p produces. Missing files are not an error.
func (s *Session) CleanProject(p *Project) error {
	a, err := s.Artifacts(p)
	if err != nil {
		s.Out.Debug("incomplete source list while cleaning", "project", p.Name, "err", err)
	}

	paths := a.Paths()
	if len(paths) == 0 {
		return nil
	}

	label := p.Name
	if label == "" {
		label = p.ObjDir
	}
	s.Out.Status(msg.StepClean, label, "remove "+strings.Join(paths, " "))

	var errs []error
	for _, path := range paths {
		if err := os.RemoveAll(s.resolve(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// TargetNames lists the target names of p; example groups have one per discovered source.
func (s *Session) TargetNames(p *Project) ([]string, error) {
	if p.Kind != KindExamples {
		return []string{p.Name}, nil
	}
	files, err := DiscoverAll(s.Discover, p.Sources)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		src, err := p.Resolve(f)
		if err != nil {
			return nil, err
		}
		names = append(names, src.Target)
	}
	return names, nil
}
