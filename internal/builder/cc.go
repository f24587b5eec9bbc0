package builder

import (
	"cmp"
	"os"
	"os/exec"

	"github.com/qobs-build/bd/internal/engine"
)

// only drivers that understand gcc-style -MMD -MP -o
var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "cc"}
	commonCxxCompilers = []string{"clang++", "g++", "icpx", "icpc", "c++"}
	commonArchivers    = []string{"ar", "llvm-ar"}
)

// findCompiler attempts to find a suitable C or C++ compiler on the system
func findCompiler(needCxx bool) string {
	if needCxx {
		if cxx := os.Getenv("CXX"); cxx != "" {
			return cxx
		}
		return lookFirst(commonCxxCompilers)
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return lookFirst(commonCCompilers)
}

func findArchiver() string {
	if ar := os.Getenv("AR"); ar != "" {
		return ar
	}
	return lookFirst(commonArchivers)
}

func lookFirst(programs []string) string {
	for _, program := range programs {
		path, err := exec.LookPath(program)
		if err == nil {
			return path
		}
	}
	return ""
}

// ResolveToolchain picks the programs to use: [toolchain] entries first, then the CC, CXX and
// AR environment variables, then whatever is found on PATH, then plain gcc, g++ and ar.
func ResolveToolchain(sec ToolchainSection) engine.Toolchain {
	tc := engine.Toolchain{CC: sec.CC, CXX: sec.CXX, AR: sec.AR}
	if tc.CC == "" {
		tc.CC = cmp.Or(findCompiler(false), "gcc")
	}
	if tc.CXX == "" {
		tc.CXX = cmp.Or(findCompiler(true), "g++")
	}
	if tc.AR == "" {
		tc.AR = cmp.Or(findArchiver(), "ar")
	}
	return tc
}

