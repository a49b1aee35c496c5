// Package project loads the per-project hack.yaml configuration that
// supplies the log pipeline's collaborator inputs: the compose file
// reference, optional profile scoping, the Loki base URL, and the
// backend preference defaults.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hack-cli/hack/pkg/logs"
)

// ConfigFileNames are the recognized project config file names, checked
// in order in each directory walking up from the working directory.
var ConfigFileNames = []string{"hack.yaml", "hack.yml"}

// DefaultLokiURL is used when the project config does not name one.
const DefaultLokiURL = "http://localhost:3100"

// Config is the parsed hack.yaml.
type Config struct {
	Name        string   `yaml:"name"`
	Branch      string   `yaml:"branch"`
	ComposeFile string   `yaml:"compose_file"`
	Profiles    []string `yaml:"profiles"`

	Loki LokiConfig `yaml:"loki"`
	Logs LogsConfig `yaml:"logs"`

	// Dir is the directory the config file was found in.
	Dir string `yaml:"-"`
}

// LokiConfig points the pipeline at the project's log index.
type LokiConfig struct {
	URL string `yaml:"url"`
}

// LogsConfig holds the backend preference defaults consulted when
// neither --loki nor --compose is passed.
type LogsConfig struct {
	FollowBackend   logs.Backend `yaml:"follow_backend"`
	SnapshotBackend logs.Backend `yaml:"snapshot_backend"`
}

// Load walks up from dir looking for a project config file and parses
// the first one found.
func Load(dir string) (*Config, error) {
	path, err := find(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	cfg.applyDefaults()

	if cfg.Name == "" {
		return nil, fmt.Errorf("%s is missing the project name", path)
	}
	return &cfg, nil
}

func find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no hack.yaml found in %s or any parent directory", dir)
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.ComposeFile == "" {
		c.ComposeFile = filepath.Join(c.Dir, "docker-compose.yaml")
	} else if !filepath.IsAbs(c.ComposeFile) {
		c.ComposeFile = filepath.Join(c.Dir, c.ComposeFile)
	}
	if c.Loki.URL == "" {
		c.Loki.URL = DefaultLokiURL
	}
	if c.Logs.FollowBackend == "" {
		c.Logs.FollowBackend = logs.BackendCompose
	}
	if c.Logs.SnapshotBackend == "" {
		c.Logs.SnapshotBackend = logs.BackendCompose
	}
}
