package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// SupportedProfileMajor is the major version of the profile file format this build reads
const SupportedProfileMajor = "v1"

// ProfileFile is the on-disk layout of a run-profile file
type ProfileFile struct {
	Version  string             `yaml:"version" toml:"version"`
	Profiles []types.RunProfile `yaml:"profiles" toml:"profiles"`
}

// LoadProfiles reads a YAML or TOML profile file (chosen by extension), checks its
// version and resolves profile inheritance. Problems are *types.ConfigError.
func LoadProfiles(path string) (map[string]types.RunProfile, error) {
	log.Debug("Reading profile file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	var file ProfileFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, types.NewConfigError(fmt.Sprintf("parsing profile file %s: %v", path, err))
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, types.NewConfigError(fmt.Sprintf("parsing profile file %s: %v", path, err))
		}
	default:
		return nil, types.NewConfigError(fmt.Sprintf("unsupported profile file extension %q (use .yaml, .yml or .toml)", ext))
	}

	if err := checkVersion(file.Version); err != nil {
		return nil, err
	}
	return resolveProfiles(file.Profiles)
}

// LoadProfile loads path and returns the resolved profile id
func LoadProfile(path, id string) (*types.RunProfile, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	p, ok := profiles[id]
	if !ok {
		return nil, types.NewConfigError(fmt.Sprintf("profile %q not found in %s", id, path))
	}
	return &p, nil
}

func checkVersion(version string) error {
	if version == "" {
		return types.NewConfigError("profile file has no version")
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return types.NewConfigError(fmt.Sprintf("invalid profile file version %q", version))
	}
	if major := semver.Major(v); major != SupportedProfileMajor {
		return types.NewConfigError(fmt.Sprintf("unsupported profile file version %q, expected %s.x", version, SupportedProfileMajor))
	}
	return nil
}

func resolveProfiles(list []types.RunProfile) (map[string]types.RunProfile, error) {
	declared := make(map[string]types.RunProfile, len(list))
	issues := types.NewConfigError()
	for _, p := range list {
		if p.ID == "" {
			issues.Addf("profile without id")
			continue
		}
		if _, dup := declared[p.ID]; dup {
			issues.Addf("duplicate profile %q", p.ID)
			continue
		}
		declared[p.ID] = p
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}

	resolved := make(map[string]types.RunProfile, len(declared))
	for id, p := range declared {
		if err := p.ResolveInherited(declared); err != nil {
			issues.Addf("%v", err)
			continue
		}
		resolved[id] = p
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}
	return resolved, nil
}
