package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunFile is the optional YAML file holding default run settings. Command line
// flags override anything set here.
type RunFile struct {
	Iterations        int64          `yaml:"iterations"`
	Warmup            int64          `yaml:"warmup"`
	Threads           int            `yaml:"threads"`
	ProcessingThreads int            `yaml:"processing_threads"`
	RateLimit         int            `yaml:"rate_limit"`
	Files             map[string]int `yaml:"files"`
	Temp              string         `yaml:"temp"`
	Keep              bool           `yaml:"keep"`
	Storage           StorageFile    `yaml:"storage"`
}

// StorageFile describes the storage target in a RunFile.
type StorageFile struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Profile   string `yaml:"profile"`
	Namespace string `yaml:"namespace"`
	OCIConfig string `yaml:"oci_config"`
}

// LoadRunFile reads and decodes a run file. Unknown keys are rejected.
func LoadRunFile(path string) (*RunFile, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run file: %w", err)
	}
	defer f.Close()

	var rf RunFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	return &rf, nil
}
