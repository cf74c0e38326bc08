package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestShort tests the Short function.
func TestShort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Version, Short())
}

// TestFull tests the Full function.
func TestFull(t *testing.T) {
	t.Parallel()

	result := Full()

	assert.Contains(t, result, "version: "+Version+", commit: ")
	assert.Contains(t, result, ", built at: ")
}

// TestFromSettings tests how the VCS stamp fills values missing from the link flags.
func TestFromSettings(t *testing.T) {
	t.Parallel()

	stamp := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-10-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "false"},
	}

	tests := []struct {
		name              string
		commit            string
		buildTime         string
		settings          []debug.BuildSetting
		expectedCommit    string
		expectedBuildTime string
	}{
		{
			name:              "stamp fills unset values",
			commit:            unsetCommit,
			buildTime:         unsetBuildTime,
			settings:          stamp,
			expectedCommit:    "0123456789ab",
			expectedBuildTime: "2026-10-01T10:00:00Z",
		},
		{
			name:              "link flags win",
			commit:            "abc",
			buildTime:         "today",
			settings:          stamp,
			expectedCommit:    "abc",
			expectedBuildTime: "today",
		},
		{
			name:      "modified tree",
			commit:    unsetCommit,
			buildTime: unsetBuildTime,
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "deadbeef"},
				{Key: "vcs.modified", Value: "true"},
			},
			expectedCommit:    "deadbeef-dirty",
			expectedBuildTime: unsetBuildTime,
		},
		{
			name:              "no stamp",
			commit:            unsetCommit,
			buildTime:         unsetBuildTime,
			expectedCommit:    unsetCommit,
			expectedBuildTime: unsetBuildTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			commit, buildTime := fromSettings(tt.commit, tt.buildTime, tt.settings)

			assert.Equal(t, tt.expectedCommit, commit)
			assert.Equal(t, tt.expectedBuildTime, buildTime)
		})
	}
}

// TestFormat tests the format function.
func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "version: 1.2.3, commit: abc, built at: now", format("1.2.3", "abc", "now"))
}

// TestVersionFormat tests that version follows semantic versioning format.
func TestVersionFormat(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Version, ".")
	assert.NotContains(t, Version, " ")
}
