package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned when a named profile has no file.
var ErrProfileNotFound = errors.New("profile not found")

var profileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// DefaultDir is the per-user configuration directory, e.g. ~/.config/vapora.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vapora"), nil
}

// Profiles manages named YAML snapshots of a Config under Dir/profiles.
type Profiles struct {
	Dir string
}

func (p Profiles) path(name string) (string, error) {
	if !profileName.MatchString(name) {
		return "", fmt.Errorf("invalid profile name %q", name)
	}
	return filepath.Join(p.Dir, "profiles", name+".yaml"), nil
}

// Save writes cfg as profile name. Secrets are never written.
func (p Profiles) Save(name string, cfg Config) (string, error) {
	path, err := p.path(name)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Read returns the raw YAML of a profile.
func (p Profiles) Read(name string) ([]byte, error) {
	path, err := p.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return data, err
}

// List returns the saved profile names, sorted.
func (p Profiles) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.Dir, "profiles"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Merge layers profile name over whatever v has already read. Flags and
// environment keep precedence.
func (p Profiles) Merge(v *viper.Viper, name string) error {
	data, err := p.Read(name)
	if err != nil {
		return err
	}
	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("merge profile %s: %w", name, err)
	}
	return nil
}
