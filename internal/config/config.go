package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from auditor.yml.
type ProjectConfig struct {
	OutputDir    string `yaml:"outputDir,omitempty"`
	RubricPath   string `yaml:"rubricPath,omitempty"`
	DBPath       string `yaml:"dbPath,omitempty"`
	Model        string `yaml:"model,omitempty"`
	StageTimeout string `yaml:"stageTimeout,omitempty"`
	Verbose      bool   `yaml:"verbose,omitempty"`
}

// Load attempts to read auditor.yml or auditor.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"auditor.yml", "auditor.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Timeout parses the configured stage timeout. Zero when unset or invalid.
func (c *ProjectConfig) Timeout() time.Duration {
	if c.StageTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.StageTimeout)
	if err != nil {
		return 0
	}
	return d
}
