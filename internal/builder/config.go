package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/bd/internal/engine"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

const DefaultDepsDir = "deps"

// ConfigNames are tried in order when no config file is given.
var ConfigNames = []string{"bd.toml", "bd.yaml", "bd.yml"}

var errIncludeCycle = errors.New("include cycle")

type Config struct {
	Toolchain    ToolchainSection
	Dependencies map[string]string
	DepsDir      string
	Projects     []ProjectSection
}

// ToolchainSection defines the [toolchain] section
type ToolchainSection struct {
	CC  string `toml:"cc"`
	CXX string `toml:"cxx"`
	AR  string `toml:"ar"`
}

// ProjectSection defines one [[project]] entry
type ProjectSection struct {
	Name    string   `toml:"name"`
	Kind    string   `toml:"kind"`
	ObjDir  string   `toml:"objdir"`
	Sources []string `toml:"sources"`
	Cflags  []string `toml:"cflags"`
	Ldflags []string `toml:"ldflags"`
	Libs    []string `toml:"libs"`
	CC      string   `toml:"cc"`
	CXX     string   `toml:"cxx"`
	Script  string   `toml:"script"`
}

// Project converts the section into the declaration the engine builds.
func (ps ProjectSection) Project() (*engine.Project, error) {
	kind, err := engine.ParseKind(ps.Kind)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ps.Name, err)
	}
	if ps.Name == "" && kind != engine.KindExamples {
		return nil, fmt.Errorf("%s project without a name", kind)
	}

	objdir := ps.ObjDir
	if objdir == "" {
		objdir = filepath.Join("obj", ps.Name)
	}

	return &engine.Project{
		Name:    ps.Name,
		Kind:    kind,
		ObjDir:  filepath.Clean(objdir),
		Sources: slices.Clone(ps.Sources),
		Cflags:  slices.Clone(ps.Cflags),
		Ldflags: slices.Clone(ps.Ldflags),
		Libs:    slices.Clone(ps.Libs),
		CC:      ps.CC,
		CXX:     ps.CXX,
	}, nil
}

// RunScript evaluates the project's script, which must return true.
func (ps ProjectSection) RunScript(env ConfigEnv) error {
	if ps.Script == "" {
		return nil
	}

	program, err := expr.Compile(ps.Script, expr.Env(env))
	if err != nil {
		return fmt.Errorf("failed to compile script for project %q: %w", ps.Name, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("failed to run script for project %q: %w", ps.Name, err)
	}

	if result, ok := result.(bool); !ok || !result {
		return fmt.Errorf("script for project %q returned false\n%s", ps.Name, ps.Script)
	}

	return nil
}

// merge folds other into c. Values set in other win and its projects go last, so merging the
// includes first and the including file last lets the includer override them.
func (c *Config) merge(other *Config) error {
	if err := mergeSection(&c.Toolchain, other.Toolchain); err != nil {
		return err
	}
	if err := mergeSection(&c.Dependencies, other.Dependencies); err != nil {
		return err
	}
	if other.DepsDir != "" {
		c.DepsDir = other.DepsDir
	}
	c.Projects = append(c.Projects, other.Projects...)
	return nil
}

// mergeSection merges src into dst. dst is a pointer to a struct or a map; for structs slices
// append, maps merge, bools OR and other non-zero values overwrite.
func mergeSection(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer {
		return fmt.Errorf("dst must be a pointer")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same type")
	}

	switch dstElem.Kind() {
	case reflect.Map:
		mergeMap(dstElem, srcVal)
		return nil
	case reflect.Struct:
	default:
		return fmt.Errorf("cannot merge values of kind %s", dstElem.Kind())
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Map:
			mergeMap(dstField, srcField)
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mergeMap(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range src.MapKeys() {
		dst.SetMapIndex(key, src.MapIndex(key))
	}
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalConditionalSection parses a top-level table of rawCfg, see unmarshalConditionalTable
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}
	return unmarshalConditionalTable(sectionMap, name, dst, env)
}

// unmarshalConditionalTable parses a table into dst. Sub-tables whose key compiles as an
// expression are merged in when the expression is true.
func unmarshalConditionalTable[T any](sectionMap map[string]any, name string, dst *T, env ConfigEnv) error {
	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env))
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	// sorted so that overwrites between matching conditions are reproducible
	expressions := make([]string, 0, len(conditionalFields))
	for expression := range conditionalFields {
		expressions = append(expressions, expression)
	}
	slices.Sort(expressions)

	for _, expression := range expressions {
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(conditionalFields[expression])), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeSection(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, m := range matches {
		builder.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = m[1]
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed config and evaluates expressions in strings.
// Project scripts are left alone, they are evaluated when the project is built.
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "script" {
				continue
			}
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// decodeRaw reads a TOML or YAML document into a generic map.
func decodeRaw(rdr io.Reader, yamlFormat bool) (map[string]any, error) {
	var rawConfig map[string]any
	if yamlFormat {
		if err := yaml.NewDecoder(rdr).Decode(&rawConfig); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	} else {
		if err := toml.NewDecoder(rdr).Decode(&rawConfig); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				return nil, errors.New(derr.String())
			}
			return nil, err
		}
	}
	if rawConfig == nil {
		rawConfig = make(map[string]any)
	}
	return rawConfig, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ParseConfig parses one config document. Includes are returned unresolved.
func ParseConfig(rdr io.Reader, yamlFormat bool, env ConfigEnv) (*Config, []string, error) {
	rawConfig, err := decodeRaw(rdr, yamlFormat)
	if err != nil {
		return nil, nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	var top struct {
		Include []string `toml:"include"`
		DepsDir string   `toml:"deps-dir"`
	}
	topFields := make(map[string]any)
	for _, key := range []string{"include", "deps-dir"} {
		if v, ok := rawConfig[key]; ok {
			topFields[key] = v
		}
	}
	if err := toml.Unmarshal([]byte(mustMarshal(topFields)), &top); err != nil {
		return nil, nil, fmt.Errorf("failed to parse top-level keys: %w", err)
	}

	cfg := &Config{DepsDir: top.DepsDir}
	if err := unmarshalConditionalSection(rawConfig, "toolchain", &cfg.Toolchain, env); err != nil {
		return nil, nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "dependencies", &cfg.Dependencies, env); err != nil {
		return nil, nil, err
	}

	if data, ok := rawConfig["project"]; ok {
		entries, ok := data.([]any)
		if !ok {
			return nil, nil, errors.New("invalid [[project]] format: expected an array of tables")
		}
		for i, entry := range entries {
			table, ok := entry.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("invalid [[project]] #%d: expected a table", i+1)
			}
			var ps ProjectSection
			if err := unmarshalConditionalTable(table, fmt.Sprintf("project.%d", i+1), &ps, env); err != nil {
				return nil, nil, err
			}
			cfg.Projects = append(cfg.Projects, ps)
		}
	}

	return cfg, top.Include, nil
}

// ParseConfigFromFile parses a config file and everything it includes. Included files are
// resolved against the including file's directory and come before the including file's own
// projects.
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	cfg, err := (&configLoader{env: env}).load(path)
	if err != nil {
		return nil, err
	}
	if cfg.DepsDir == "" {
		cfg.DepsDir = DefaultDepsDir
	}
	return cfg, nil
}

type configLoader struct {
	env   ConfigEnv
	stack []string // files being loaded, outermost first
}

func (l *configLoader) load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if slices.Contains(l.stack, abs) {
		return nil, fmt.Errorf("%w: %s", errIncludeCycle, strings.Join(append(slices.Clone(l.stack), abs), " -> "))
	}
	l.stack = append(l.stack, abs)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	own, includes, err := ParseConfig(bufio.NewReader(f), isYAML(abs), l.env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := new(Config)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		sub, err := l.load(inc)
		if err != nil {
			return nil, err
		}
		if err := cfg.merge(sub); err != nil {
			return nil, err
		}
	}
	if err := cfg.merge(own); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig returns the config file in dir, trying ConfigNames in order.
func FindConfig(dir string) (string, error) {
	for _, name := range ConfigNames {
		path := filepath.Join(dir, name)
		if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s found in %s", strings.Join(ConfigNames, ", "), dir)
}

//
// expr-lang helpers
//

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewConfigEnv(basedir string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		basedir:    basedir,
	}
}

func (env ConfigEnv) resolve(path string) (string, error) {
	fullPath := filepath.Join(env.basedir, path)
	rel, err := filepath.Rel(env.basedir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside of project directory %q", path, env.basedir)
	}
	return fullPath, nil
}

// Patch applies a diff-match-patch patch to a file and reports whether any hunk applied.
func (env ConfigEnv) Patch(path, patchText string) (bool, error) {
	fullPath, err := env.resolve(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return false, err
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return false, fmt.Errorf("invalid patch for %s: %w", path, err)
	}
	patchedText, results := dmp.PatchApply(patches, string(data))
	if !slices.Contains(results, true) {
		return false, nil // nothing was applied, nothing to write
	}

	if err := os.WriteFile(fullPath, []byte(patchedText), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func (env ConfigEnv) ReadFile(path string) (string, error) {
	fullPath, err := env.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
