package builder

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/qobs-build/bd/internal/engine"
	"github.com/qobs-build/bd/internal/msg"
)

// Builder ties a parsed configuration to the build engine.
type Builder struct {
	cfg      *Config
	cfgPath  string
	basedir  string
	env      ConfigEnv
	projects []*engine.Project
}

// NewBuilderInDirectory loads the configuration of the project rooted at path. configPath may
// be empty to look for one of ConfigNames, and is otherwise relative to path.
func NewBuilderInDirectory(path, configPath string) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		if configPath, err = FindConfig(path); err != nil {
			return nil, err
		}
	} else if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(path, configPath)
	}

	env := NewConfigEnv(path)
	cfg, err := ParseConfigFromFile(configPath, env)
	if err != nil {
		return nil, err
	}

	projects := make([]*engine.Project, 0, len(cfg.Projects))
	for _, ps := range cfg.Projects {
		p, err := ps.Project()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", configPath, err)
		}
		projects = append(projects, p)
	}

	return &Builder{
		cfg:      cfg,
		cfgPath:  configPath,
		basedir:  path,
		env:      env,
		projects: projects,
	}, nil
}

func (b *Builder) Config() *Config { return b.cfg }

func (b *Builder) ConfigPath() string { return b.cfgPath }

func (b *Builder) Dir() string { return b.basedir }

// Projects returns the declared projects in order.
func (b *Builder) Projects() []*engine.Project { return b.projects }

// NewSession starts a build session for this project with the resolved toolchain.
func (b *Builder) NewSession(out *msg.Printer, jobs int) *engine.Session {
	tc := ResolveToolchain(b.cfg.Toolchain)
	s := engine.NewSession(b.basedir, tc, out)
	s.Jobs = jobs
	s.BeforeProject = func(i int, _ *engine.Project) error {
		return b.cfg.Projects[i].RunScript(b.env)
	}
	s.Out.Debug("toolchain", "cc", tc.CC, "cxx", tc.CXX, "ar", tc.AR, "jobs", jobs)
	return s
}

// Build fetches missing dependencies, then builds the projects in order, running each
// project's script first. It returns the session's exit status.
func (b *Builder) Build(s *engine.Session) int {
	if len(b.cfg.Dependencies) > 0 {
		var progress io.Writer
		if !s.Out.Quiet {
			progress = s.Out.Output()
		}
		paths, err := FetchDependencies(b.basedir, b.cfg.DepsDir, b.cfg.Dependencies, progress)
		if err != nil {
			s.Fail(err)
			return s.Status()
		}
		for name, path := range paths {
			s.Out.Debug("dependency", "name", name, "path", path)
		}
	}

	return s.Build(b.projects)
}

// Clean removes everything a build of the projects produces. Fetched dependencies are kept.
func (b *Builder) Clean(s *engine.Session) int {
	return s.Clean(b.projects)
}

// TargetInfo describes one target for `list` and `conf`.
type TargetInfo struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    string   `yaml:"kind" json:"kind"`
	Output  string   `yaml:"output,omitempty" json:"output,omitempty"`
	ObjDir  string   `yaml:"objdir,omitempty" json:"objdir,omitempty"`
	Sources []string `yaml:"sources,omitempty" json:"sources,omitempty"`
	Cflags  []string `yaml:"cflags,omitempty" json:"cflags,omitempty"`
	Ldflags []string `yaml:"ldflags,omitempty" json:"ldflags,omitempty"`
	Libs    []string `yaml:"libs,omitempty" json:"libs,omitempty"`
}

// Targets lists every target, expanding example groups into one entry per source. With
// detailed set each entry also carries the project's flags. A project whose sources can't
// be discovered is reported on the session and left out.
func (b *Builder) Targets(s *engine.Session, detailed bool) []TargetInfo {
	var out []TargetInfo
	for _, p := range b.projects {
		names, err := s.TargetNames(p)
		if err != nil {
			s.Fail(fmt.Errorf("failed to collect sources for %s: %w", p.Name, err))
			continue
		}
		for _, name := range names {
			info := TargetInfo{Name: name, Kind: p.Kind.Label()}
			if detailed {
				info.Output = p.TargetPath(name)
				info.ObjDir = p.ObjDir
				info.Sources = p.Sources
				info.Cflags = p.Cflags
				info.Ldflags = p.Ldflags
				info.Libs = p.Libs
			}
			out = append(out, info)
		}
	}
	return out
}
