// Package config loads the YAML deploy configuration: local root,
// ignore/preprocess patterns, pre/post jobs, purge paths, manifest
// name, delete/test-mode flags, and the transport backend selection.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/job"
)

const defaultManifestName = ".htdeployment"

// Config is the top-level deploy configuration.
type Config struct {
	Root            string          `yaml:"root"`
	ManifestName    string          `yaml:"manifest_name"`
	AllowDelete     bool            `yaml:"allow_delete"`
	TestMode        bool            `yaml:"test_mode"`
	IgnorePatterns  []string        `yaml:"ignore"`
	PreprocessGlobs []string        `yaml:"preprocess"`
	PurgePaths      []string        `yaml:"purge"`
	PreJobs         []string        `yaml:"pre_jobs"`
	PostJobs        []string        `yaml:"post_jobs"`
	Transport       TransportConfig `yaml:"transport"`
}

// TransportConfig selects and configures a transport.Server backend.
type TransportConfig struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// Load reads path, expands environment variables in Root and
// PurgePaths, applies defaults, and validates, which includes checking
// that every PreJobs/PostJobs entry parses as a job.Job. The parsed
// jobs themselves come from PreJobList and PostJobList.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	c.expandEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &c, nil
}

func (c *Config) expandEnv() {
	c.Root = os.ExpandEnv(c.Root)
	for i, p := range c.PurgePaths {
		c.PurgePaths[i] = os.ExpandEnv(p)
	}
}

func (c *Config) applyDefaults() {
	if c.ManifestName == "" {
		c.ManifestName = defaultManifestName
	}
}

// Validate checks the configuration for internal consistency. It does
// not check that Root exists on disk; that is a ConfigError raised by
// the Deployer at scan time.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("root must be an absolute path: %s", c.Root)
	}
	if c.Transport.Type == "" {
		return fmt.Errorf("transport.type is required")
	}
	for _, spec := range append(append([]string{}, c.PreJobs...), c.PostJobs...) {
		if _, err := job.Parse(spec); err != nil {
			return &htdeploy.ConfigError{Op: fmt.Sprintf("invalid job specification %q", spec), Err: err}
		}
	}
	return nil
}

// PreJobList parses PreJobs into job.Job values. The CLI calls it when
// it builds a Deployer.
func (c *Config) PreJobList() ([]job.Job, error) {
	return parseJobs(c.PreJobs)
}

// PostJobList parses PostJobs into job.Job values.
func (c *Config) PostJobList() ([]job.Job, error) {
	return parseJobs(c.PostJobs)
}

func parseJobs(specs []string) ([]job.Job, error) {
	jobs := make([]job.Job, 0, len(specs))
	for _, spec := range specs {
		j, err := job.Parse(spec)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
