// bd [command...], e.g. bd clean build
package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/qobs-build/bd/internal/builder"
	"github.com/qobs-build/bd/internal/engine"
	"github.com/qobs-build/bd/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagQuiet   bool
	flagNoErr   bool
	flagVerbose bool
	flagJobs    int
	flagDir     string
	flagFile    string
	flagOutput  EnumValue = NewEnumValue("text", map[string]string{
		"text": "One line per target (default)",
		"yaml": "YAML document",
		"json": "JSON array",
	})
)

// run is the state shared by every command token of one invocation.
type run struct {
	b *builder.Builder
	s *engine.Session
}

var current run

// load reads the configuration once per invocation.
func (r *run) load() {
	if r.b != nil {
		return
	}
	b, err := builder.NewBuilderInDirectory(flagDir, flagFile)
	if err != nil {
		msg.Fatal("%v", err)
	}
	r.b = b
	r.s = b.NewSession(msg.NewPrinter(os.Stdout, flagQuiet, flagNoErr, flagVerbose), flagJobs)
}

func (r *run) status() int {
	if r.s == nil {
		return 0
	}
	return r.s.Status()
}

type action struct {
	short string
	do    func(r *run)
}

var actions = map[string]action{
	"build": {"Build every project (default)", func(r *run) { r.load(); r.b.Build(r.s) }},
	"clean": {"Remove objects, dependency files and targets", func(r *run) { r.load(); r.b.Clean(r.s) }},
	"list":  {"List every target", func(r *run) { r.load(); printTargets(os.Stdout, r.b.Targets(r.s, false), false) }},
	"conf":  {"List every target with its configuration", func(r *run) { r.load(); printTargets(os.Stdout, r.b.Targets(r.s, true), true) }},
	"os":    {"Print the host platform", func(r *run) { fmt.Println(hostLabel()) }},
	"init":  {"Create a starter bd.toml and src/main.c", func(r *run) { initIn(flagDir, flagLib) }},
}

// commandsFor picks the command tokens out of args, in order. Unknown tokens are ignored;
// without any command token the build runs.
func commandsFor(args []string) []string {
	var cmds []string
	for _, arg := range args {
		if _, ok := actions[arg]; ok {
			cmds = append(cmds, arg)
		}
	}
	if len(cmds) == 0 {
		cmds = []string{"build"}
	}
	return cmds
}

// dispatch runs the command tokens in order and stops once a toolchain failure halted the
// session.
func dispatch(r *run, args []string) {
	for _, name := range commandsFor(args) {
		actions[name].do(r)
		if r.s != nil && r.s.Halted() {
			return
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "bd [command...]",
	Short: "Incremental C and C++ build driver",
	Long: `bd compiles and links the projects declared in bd.toml (or bd.yaml), recompiling only
sources whose object is older than the source or one of its headers.

Several commands may be given and run in order, e.g. "bd clean build".`,
	Args:               cobra.ArbitraryArgs,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	SilenceUsage:       true,
	Run: func(cmd *cobra.Command, args []string) {
		dispatch(&current, args)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Don't print status lines")
	pf.BoolVarP(&flagNoErr, "no-errors", "e", false, "Don't print error messages")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Print staleness decisions and indent tool output")
	pf.IntVarP(&flagJobs, "jobs", "j", 1, "Compile up to N sources of a target in parallel")
	pf.StringVarP(&flagDir, "directory", "C", ".", "Run as if started in this directory")
	pf.StringVarP(&flagFile, "file", "f", "", "Configuration file (default bd.toml, bd.yaml or bd.yml)")
	pf.VarP(&flagOutput, "output", "o", "Format of list and conf, one of "+flagOutput.HelpString())
	rootCmd.RegisterFlagCompletionFunc("output", flagOutput.CompletionFunc())

	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		sub := &cobra.Command{
			Use:                name + " [command...]",
			Short:              actions[name].short,
			Args:               cobra.ArbitraryArgs,
			FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
			Run: func(cmd *cobra.Command, args []string) {
				dispatch(&current, append([]string{name}, args...))
			},
		}
		if name == "init" {
			sub.Flags().BoolVarP(&flagLib, "lib", "l", false, "Declare a static library instead of an app")
		}
		rootCmd.AddCommand(sub)
	}
}

// Execute runs the command line and exits with the build status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(current.status())
}
