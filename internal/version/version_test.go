package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gtk96/windmill/internal/version"
)

func TestInfo(t *testing.T) {
	info := version.Info()

	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.GoVersion, info.GoVersion)
	assert.False(t, info.BuildTime.IsZero())
}

func TestBuildInfoString(t *testing.T) {
	info := version.Info()
	s := info.String()

	assert.True(t, strings.HasPrefix(s, "Windmill Window Operator"))
	assert.Contains(t, s, "Version: "+info.Version)
	assert.Contains(t, s, "Go Version: "+info.GoVersion)
}

func TestIsRelease(t *testing.T) {
	// The default build tag is dev.
	assert.False(t, version.IsRelease())
}
