package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveToolchainPrecedence(t *testing.T) {
	t.Setenv("CC", "env-cc")
	t.Setenv("CXX", "env-cxx")
	t.Setenv("AR", "env-ar")

	tc := ResolveToolchain(ToolchainSection{CC: "my-cc"})
	assert.Equal(t, "my-cc", tc.CC)
	assert.Equal(t, "env-cxx", tc.CXX)
	assert.Equal(t, "env-ar", tc.AR)
}

func TestResolveToolchainFallback(t *testing.T) {
	t.Setenv("CC", "")
	t.Setenv("CXX", "")
	t.Setenv("AR", "")
	t.Setenv("PATH", t.TempDir())

	tc := ResolveToolchain(ToolchainSection{})
	assert.Equal(t, "gcc", tc.CC)
	assert.Equal(t, "g++", tc.CXX)
	assert.Equal(t, "ar", tc.AR)
}
