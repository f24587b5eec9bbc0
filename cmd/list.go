// bd list, bd conf, bd os
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/bd/internal/builder"
	"github.com/qobs-build/bd/internal/msg"
	"gopkg.in/yaml.v3"
)

// printTargets writes targets in the format chosen with -o.
func printTargets(w io.Writer, targets []builder.TargetInfo, detailed bool) {
	if err := writeTargets(w, flagOutput.Value(), targets, detailed); err != nil {
		msg.Error("%v", err)
	}
}

func writeTargets(w io.Writer, format string, targets []builder.TargetInfo, detailed bool) error {
	if targets == nil {
		targets = []builder.TargetInfo{}
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(targets)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(targets)
	}

	for _, t := range targets {
		fmt.Fprintf(w, "[%s] : %s\n", color.HiCyanString(t.Name), t.Kind)
		if !detailed {
			continue
		}
		iw := &msg.IndentWriter{Indent: "    ", W: w}
		fmt.Fprintf(iw, "output:  %s\n", t.Output)
		fmt.Fprintf(iw, "objdir:  %s\n", t.ObjDir)
		fmt.Fprintf(iw, "sources: %s\n", strings.Join(t.Sources, " "))
		fmt.Fprintf(iw, "cflags:  %s\n", strings.Join(t.Cflags, " "))
		fmt.Fprintf(iw, "ldflags: %s\n", strings.Join(t.Ldflags, " "))
		fmt.Fprintf(iw, "libs:    %s\n", strings.Join(t.Libs, " "))
	}
	return nil
}

func hostLabel() string {
	return osLabel(runtime.GOOS)
}

// osLabel names the platform family of a GOOS value.
func osLabel(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin", "ios":
		return "Apple"
	case "android":
		return "Android"
	case "linux":
		return "Linux"
	}
	return "Posix"
}
