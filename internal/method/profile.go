// Package method holds the static method profile table and the router that
// resolves requested method names (and aliases) to profiles.
package method

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Accuracy tiers reported by the workers.
const (
	AccuracyHigh         = "high"
	AccuracyLow          = "low"
	AccuracyExperimental = "experimental"
)

// Profile binds a canonical method name to its worker and defaults.
// Profiles are loaded once at startup and immutable afterward.
type Profile struct {
	Name           string        // Canonical method name, reported in Results
	Aliases        []string      // Alternative request names, case-sensitive
	Worker         string        // Path of the worker executable (exec runtime)
	Image          string        // Container image (docker runtime)
	DefaultTimeout time.Duration // Per-invocation deadline unless overridden
	ReadyThreshold float64       // Delta E below this is manufacturing-ready
	Accuracy       string        // Accuracy tier, informational
}

// profileYAML mirrors Profile for file loading; timeout is a duration string.
type profileYAML struct {
	Name           string   `yaml:"name"`
	Aliases        []string `yaml:"aliases"`
	Worker         string   `yaml:"worker"`
	Image          string   `yaml:"image"`
	Timeout        string   `yaml:"timeout"`
	ReadyThreshold float64  `yaml:"ready_threshold"`
	Accuracy       string   `yaml:"accuracy"`
}

type methodsFile struct {
	Methods []profileYAML `yaml:"methods"`
}

// Defaults returns the built-in profile table for the three known methods.
// Used when no methods file is configured.
func Defaults() []Profile {
	return []Profile{
		{
			Name:           "pytorch_unet",
			Aliases:        []string{"pytorch", "unet", "high-accuracy"},
			Worker:         "workers/pytorch_enhanced.py",
			Image:          "colorwerkz/pytorch-unet:latest",
			DefaultTimeout: 2 * time.Minute,
			ReadyThreshold: 2.0,
			Accuracy:       AccuracyHigh,
		},
		{
			Name:           "opencv_baseline",
			Aliases:        []string{"opencv", "fast", "baseline"},
			Worker:         "workers/opencv_baseline.py",
			Image:          "colorwerkz/opencv-baseline:latest",
			DefaultTimeout: 30 * time.Second,
			ReadyThreshold: 2.0,
			Accuracy:       AccuracyLow,
		},
		{
			Name:           "i2i_gan",
			Aliases:        []string{"i2i", "gan", "experimental"},
			Worker:         "workers/i2i_transfer.py",
			Image:          "colorwerkz/i2i-gan:latest",
			DefaultTimeout: 5 * time.Minute,
			ReadyThreshold: 2.0,
			Accuracy:       AccuracyExperimental,
		},
	}
}

// LoadFile reads method profiles from a YAML file.
// defaultTimeout applies to profiles that specify none.
func LoadFile(path string, defaultTimeout time.Duration) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read methods file: %w", err)
	}
	return parseProfiles(data, defaultTimeout)
}

func parseProfiles(data []byte, defaultTimeout time.Duration) ([]Profile, error) {
	var file methodsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse methods file: %w", err)
	}
	if len(file.Methods) == 0 {
		return nil, fmt.Errorf("methods file defines no methods")
	}

	profiles := make([]Profile, 0, len(file.Methods))
	for i, m := range file.Methods {
		if m.Name == "" {
			return nil, fmt.Errorf("method %d: name is required", i)
		}
		if m.Worker == "" && m.Image == "" {
			return nil, fmt.Errorf("method %q: worker or image is required", m.Name)
		}

		timeout := defaultTimeout
		if m.Timeout != "" {
			parsed, err := time.ParseDuration(m.Timeout)
			if err != nil {
				return nil, fmt.Errorf("method %q: invalid timeout %q", m.Name, m.Timeout)
			}
			timeout = parsed
		}

		threshold := m.ReadyThreshold
		if threshold <= 0 {
			threshold = 2.0
		}

		profiles = append(profiles, Profile{
			Name:           m.Name,
			Aliases:        m.Aliases,
			Worker:         m.Worker,
			Image:          m.Image,
			DefaultTimeout: timeout,
			ReadyThreshold: threshold,
			Accuracy:       m.Accuracy,
		})
	}
	return profiles, nil
}
