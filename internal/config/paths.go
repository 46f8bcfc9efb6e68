package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultBaseDir = ".meetai"

// Paths holds resolved filesystem paths for Meet.AI data.
type Paths struct {
	Base   string // ~/.meetai
	Config string // ~/.meetai/config.yaml
	Data   string // ~/.meetai/data
	Logs   string // ~/.meetai/logs
}

// ResolvePaths lays out the standard paths under ~/.meetai, or under
// MEETAI_HOME when it is set.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MEETAI_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates the base, data and logs directories.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath returns the configured database path, falling back to
// meetai.db under the data directory.
func (p Paths) DatabasePath(cfg *Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return filepath.Join(p.Data, "meetai.db")
}

// blockedKeys never address a config value. They are rejected so a
// hand-edited path cannot smuggle them into the YAML file.
var blockedKeys = map[string]bool{
	"__proto__":   true,
	"prototype":   true,
	"constructor": true,
}

// ParseConfigPath splits a dotted key such as "plans.maxFreeAgents".
func ParseConfigPath(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for i, p := range parts {
		switch {
		case p == "":
			return nil, &ConfigError{Message: "config path contains empty segment"}
		case blockedKeys[p]:
			return nil, &ConfigError{Message: "config path contains blocked key: " + p}
		case strings.ContainsAny(p, " \t\n"):
			return nil, &ConfigError{Message: "config path segment " + strconv.Itoa(i+1) + " contains whitespace"}
		}
	}
	return parts, nil
}

// parentOf walks to the map holding the last segment of path. With create,
// missing or non-map intermediates are replaced by empty maps.
func parentOf(root map[string]any, path []string, create bool) (map[string]any, bool) {
	current := root
	for _, key := range path[:len(path)-1] {
		m, ok := current[key].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	return current, true
}

// GetValueAtPath returns the value at path.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	parent, ok := parentOf(root, path, false)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// SetValueAtPath stores value at path, creating intermediate maps.
func SetValueAtPath(root map[string]any, path []string, value any) {
	parent, _ := parentOf(root, path, true)
	parent[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and any maps the deletion
// leaves empty. It reports whether a value was removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	parent, ok := parentOf(root, path, false)
	if !ok {
		return false
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	if len(parent) == 0 && len(path) > 1 {
		UnsetValueAtPath(root, path[:len(path)-1])
	}
	return true
}
