package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qobs-build/bd/internal/msg"
	"golang.org/x/sync/errgroup"
)

// compileJob represents a single compilation
type compileJob struct {
	target string
	obj    string
	cmd    Command
}

// Build builds the projects in order and returns the exit status. A toolchain failure stops
// every later project.
func (s *Session) Build(projects []*Project) int {
	for i, p := range projects {
		if s.halted {
			break
		}
		if s.BeforeProject != nil {
			if err := s.BeforeProject(i, p); err != nil {
				s.fail(err)
				continue
			}
		}
		s.BuildProject(p)
	}
	return s.status
}

// BuildProject builds every target of one project.
func (s *Session) BuildProject(p *Project) error {
	if s.halted {
		return ErrHalted
	}

	tc := s.Toolchain.For(p)
	libTime := LibTime(s.times, p.Libs)

	if err := s.mkdir(p.ObjDir); err != nil {
		err = fmt.Errorf("failed to create object directory: %w", err)
		s.fail(err)
		return err
	}

	if p.Kind == KindExamples {
		return s.buildExamples(p, tc, libTime)
	}

	files, err := DiscoverAll(s.Discover, p.Sources)
	if err != nil {
		err = fmt.Errorf("failed to collect sources for %s: %w", p.Name, err)
		s.fail(err)
		return err
	}
	if files.Len() == 0 {
		s.Out.Warn("%s: no sources match %s", p.Name, strings.Join(p.Sources, " "))
	}
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		src, err := p.Resolve(f)
		if err != nil {
			s.fail(err)
			return err
		}
		sources = append(sources, src)
	}

	out := p.TargetPath(p.Name)
	if err := s.mkdir(filepath.Dir(out)); err != nil {
		err = fmt.Errorf("failed to create output directory: %w", err)
		s.fail(err)
		return err
	}
	return s.buildUnit(p, tc, p.Name, sources, libTime)
}

// buildExamples links one executable per discovered source, each right after its compile.
func (s *Session) buildExamples(p *Project, tc Toolchain, libTime Stamp) error {
	for _, pat := range p.Sources {
		files, err := s.Discover.Discover(pat)
		if err != nil {
			err = fmt.Errorf("failed to collect sources for %s: %w", p.Name, err)
			s.fail(err)
			return err
		}
		for _, f := range files {
			src, err := p.Resolve(f)
			if err != nil {
				s.fail(err)
				return err
			}
			if err := s.mkdir(filepath.Dir(p.TargetPath(src.Target))); err != nil {
				err = fmt.Errorf("failed to create output directory: %w", err)
				s.fail(err)
				return err
			}
			if err := s.buildUnit(p, tc, src.Target, []Source{src}, libTime); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildUnit checks, compiles and links one target.
func (s *Session) buildUnit(p *Project, tc Toolchain, name string, sources []Source, libTime Stamp) error {
	s.resetUnit()
	defer s.resetUnit()

	out := p.TargetPath(name)
	targetTime := s.times.ModTime(out)
	newBuild := targetTime == 0
	newLink := libTime > targetTime
	relink := newBuild || newLink
	if newLink && !newBuild {
		s.Out.Debug("library newer than target", "target", out)
	}

	var jobs []compileJob
	for _, src := range sources {
		s.lang = s.lang.Merge(src.Lang)
		s.objects.AddUnique(src.Obj)

		d := s.stale.Check(src, newBuild)
		s.Out.Debug("checked source",
			"target", name,
			"source", src.Path,
			"recompile", d.Recompile,
			"reason", string(d.Reason),
		)
		if d.Recompile {
			relink = true
			jobs = append(jobs, compileJob{
				target: name,
				obj:    src.Obj,
				cmd:    CompileCommand(p.Kind, tc, p.Cflags, src.Obj, src.Path),
			})
		}
	}

	if err := s.runCompileJobs(jobs); err != nil {
		return s.toolFailed(err)
	}
	return s.link(p, tc, name, out, relink)
}

// link runs the link step of the unit in progress if anything changed.
func (s *Session) link(p *Project, tc Toolchain, name, out string, relink bool) error {
	if !relink || s.objects.Len() == 0 {
		s.Out.UpToDate(name)
		return nil
	}

	cmd := LinkCommand(p.Kind, tc, s.lang, p.Ldflags, out, s.objects.Clone(), p.Libs)
	s.Out.Status(msg.StepLink, name, cmd.String())
	if err := s.Exec.Run(s.Dir, cmd, s.Out.Output()); err != nil {
		return s.toolFailed(err)
	}
	return nil
}

// runCompileJobs runs jobs with at most s.Jobs in flight. Jobs writing the same object run in
// order on one worker. No job starts after one has failed.
func (s *Session) runCompileJobs(jobs []compileJob) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(max(s.Jobs, 1))

	for _, group := range groupByObject(jobs) {
		eg.Go(func() error {
			for _, job := range group {
				if ctx.Err() != nil {
					return nil
				}
				if err := s.runCompileJob(job); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return eg.Wait()
}

// runCompileJob runs a single compilation
func (s *Session) runCompileJob(job compileJob) error {
	s.Out.Status(msg.StepCompile, job.target, job.cmd.String())
	return s.Exec.Run(s.Dir, job.cmd, s.Out.Output())
}

func groupByObject(jobs []compileJob) [][]compileJob {
	var groups [][]compileJob
	index := make(map[string]int)
	for _, job := range jobs {
		if i, ok := index[job.obj]; ok {
			groups[i] = append(groups[i], job)
			continue
		}
		index[job.obj] = len(groups)
		groups = append(groups, []compileJob{job})
	}
	return groups
}
