package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

const yamlProfiles = `version: "1.2.0"
profiles:
  - id: base
    description: shared defaults
    label_filter: "!slow"
    filters: ["api"]
    default_timeout: 30s
    fail_on_focus: true
  - id: ci
    inherits: [base]
    concurrency: 4
    filters: ["db"]
    format: table
`

const tomlProfiles = `version = "v1.0.0"

[[profiles]]
id = "base"
label_filter = "fast"
include_pending = true

[[profiles]]
id = "nightly"
inherits = ["base"]
label_filter = "fast,slow"
suites = ["Calculator"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAMLProfiles(t *testing.T) {
	profile, err := LoadProfile(writeFile(t, "profiles.yaml", yamlProfiles), "ci")
	require.NoError(t, err)
	assert.Equal(t, "!slow", profile.LabelFilter)
	assert.Equal(t, []string{"db", "api"}, profile.Filters)
	assert.Equal(t, "30s", profile.DefaultTimeout)
	assert.Equal(t, 4, profile.Concurrency)
	assert.Equal(t, "table", profile.Format)
	require.NotNil(t, profile.FailOnFocus)
	assert.True(t, *profile.FailOnFocus)
	assert.Nil(t, profile.IncludePending)
}

func TestLoadTOMLProfiles(t *testing.T) {
	profiles, err := LoadProfiles(writeFile(t, "profiles.toml", tomlProfiles))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	nightly := profiles["nightly"]
	assert.Equal(t, "fast,slow", nightly.LabelFilter)
	assert.Equal(t, []string{"Calculator"}, nightly.Suites)
	require.NotNil(t, nightly.IncludePending)
	assert.True(t, *nightly.IncludePending)
}

func TestLoadProfilesErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "missing version", file: "p.yaml", content: "profiles: []\n", wantErr: "no version"},
		{name: "bad version", file: "p.yaml", content: "version: banana\n", wantErr: "invalid profile file version"},
		{name: "unsupported major", file: "p.yaml", content: "version: 2.0.0\n", wantErr: "unsupported profile file version"},
		{name: "unknown extension", file: "p.json", content: "{}", wantErr: "unsupported profile file extension"},
		{name: "malformed yaml", file: "p.yml", content: "version: [\n", wantErr: "parsing profile file"},
		{name: "malformed toml", file: "p.toml", content: "version = \n", wantErr: "parsing profile file"},
		{
			name:    "circular inheritance",
			file:    "p.yaml",
			content: "version: 1.0.0\nprofiles:\n  - id: a\n    inherits: [b]\n  - id: b\n    inherits: [a]\n",
			wantErr: "circular inheritance",
		},
		{
			name:    "missing parent",
			file:    "p.yaml",
			content: "version: 1.0.0\nprofiles:\n  - id: a\n    inherits: [ghost]\n",
			wantErr: `inherits from non-existent profile "ghost"`,
		},
		{
			name:    "duplicate id",
			file:    "p.yaml",
			content: "version: 1.0.0\nprofiles:\n  - id: a\n  - id: a\n",
			wantErr: `duplicate profile "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfiles(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var cfgErr *types.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadProfileNotFound(t *testing.T) {
	_, err := LoadProfile(writeFile(t, "profiles.yaml", yamlProfiles), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nope" not found`)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
