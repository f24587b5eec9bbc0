// bd init [--lib]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/bd/internal/msg"
)

var flagLib bool

// writefile creates a file unless it already exists and reports whether it did.
func writefile(content string, elem ...string) bool {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
		return true
	}
	return false
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "bd"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// projectName derives a target name from the directory being initialised.
func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil || filepath.Base(abs) == string(filepath.Separator) {
		return "app"
	}
	name := strings.Map(func(r rune) rune {
		if r == ' ' || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filepath.Base(abs))
	return name
}

func starterConfig(name string, lib bool) string {
	if lib {
		return `[[project]]
name = "` + name + `"
kind = "static"
objdir = "obj/` + name + `"
sources = ["src/*.c", "src/*.cc", "src/*.cpp"]
cflags = ["-Wall", "-Iinclude"]

[project.'target_os == "linux"']
cflags = ["-fPIC"]

[[project]]
kind = "examples"
objdir = "obj/examples"
sources = ["examples/*.c"]
cflags = ["-Iinclude"]
libs = ["-L.", "-l` + name + `"]
`
	}
	return `[[project]]
name = "` + name + `"
objdir = "obj"
sources = ["src/*.c", "src/*.cc", "src/*.cpp"]
cflags = ["-Wall", "-O2"]

[project.'target_os == "windows"']
ldflags = ["-static"]
`
}

// initIn writes a starter project into an existing directory, leaving existing files alone
func initIn(dir string, lib bool) {
	name := projectName(dir)
	if !writefile(starterConfig(name, lib), dir, "bd.toml") {
		msg.Warn("%s already exists, not touching it", filepath.ToSlash(filepath.Join(dir, "bd.toml")))
	}

	mkdir(dir, "src")

	if lib {
		mkdir(dir, "include")
		mkdir(dir, "examples")

		writefile(`#include <stdio.h>
#include "hello_world.h"

void hello_world(void) {
    puts("Hello, World!");
}
`, dir, "src", "hello_world.c")

		writefile(`#ifndef HELLO_WORLD_H
#define HELLO_WORLD_H

#ifdef __cplusplus
extern "C" {
#endif

void hello_world(void);

#ifdef __cplusplus
} // extern "C"
#endif

#endif
`, dir, "include", "hello_world.h")

		writefile(`#include "hello_world.h"

int main(void) {
    hello_world();
    return 0;
}
`, dir, "examples", "hello.c")
	} else {
		writefile(`// You may change this to a .cpp (.cc) file if you'd like
#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	}

	writefile(`obj/
*.o
*.d
`, dir, ".gitignore")

	programName := getProgramName()
	msg.Info("you can now do %s to build, or %s to see the targets",
		color.HiCyanString(programName), color.HiCyanString(programName+" list"))
}
