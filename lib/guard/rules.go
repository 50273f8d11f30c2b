// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds a validation command when its rule does not
// set one.
const DefaultTimeout = 30 * time.Second

// Rule is one validation rule. Tools and Paths are glob patterns in
// path.Match syntax; an empty list matches everything.
type Rule struct {
	// Name identifies the rule in diagnostics.
	Name string `yaml:"name"`

	// Tools are tool-name patterns (e.g., "Edit", "Write", "*").
	Tools []string `yaml:"tools,omitempty"`

	// Paths are file-path patterns (e.g., "*.go", "lib/*/*.go").
	// Matching tries the full path first, then its base name, so
	// "*.go" matches files in any directory.
	Paths []string `yaml:"paths,omitempty"`

	// Command is the validation command, run via the shell.
	Command string `yaml:"command"`

	// TimeoutSeconds bounds the command. Zero means DefaultTimeout.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the rule's effective timeout.
func (r *Rule) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Matches reports whether the rule applies to a tool mutating the
// given path.
func (r *Rule) Matches(tool, filePath string) bool {
	return matchAny(r.Tools, tool, false) && matchAny(r.Paths, filePath, true)
}

// matchAny reports whether value matches any pattern. An empty
// pattern list matches everything. When tryBase is set, a pattern
// that misses the full value is retried against its base name.
func matchAny(patterns []string, value string, tryBase bool) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, value); err == nil && ok {
			return true
		}
		if tryBase {
			if ok, err := path.Match(pattern, filepath.Base(value)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// ruleFile is the on-disk shape of a rules document.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// RulesPath returns the project rule file location under dir.
func RulesPath(dir string) string {
	return filepath.Join(dir, ".threadline", "guard.yaml")
}

// LoadRules reads and validates a YAML rule file. A missing file is
// not an error; it yields no rules.
func LoadRules(filename string) ([]Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading guard rules %s: %w", filename, err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing guard rules %s: %w", filename, err)
	}

	var errs []error
	for i, rule := range file.Rules {
		if rule.Command == "" {
			errs = append(errs, fmt.Errorf("rule %d (%q): command is required", i, rule.Name))
		}
		for _, pattern := range append(append([]string{}, rule.Tools...), rule.Paths...) {
			if _, err := path.Match(pattern, ""); err != nil {
				errs = append(errs, fmt.Errorf("rule %d (%q): bad pattern %q: %w", i, rule.Name, pattern, err))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return file.Rules, nil
}
