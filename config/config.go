package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Main is the top level configuration.
type Main struct {
	// RuleSource is the vendor CRS rule file synchronization reads from.
	RuleSource string `yaml:"rule_source"`

	// CustomRules is the append-only custom rule store file.
	CustomRules string `yaml:"custom_rules"`

	// Exclusions is the append-only file of SecRuleRemoveById directives.
	Exclusions string `yaml:"exclusions"`

	// MinParanoiaLevel is the lowest paranoia level the telemetry join
	// keeps.
	MinParanoiaLevel int `yaml:"min_paranoia_level"`

	// CommandTimeoutSeconds bounds each enforcement point control command.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`

	Container Container `yaml:"container"`
}

// Container describes the enforcement point instance.
type Container struct {
	// Name of the Docker container running Apache+ModSecurity.
	Name string `yaml:"name"`

	// DeployedRules is the path of the custom rule store as seen inside
	// the container.
	DeployedRules string `yaml:"deployed_rules"`
}

// Default returns the configuration used when no config file is given.
func Default() Main {
	return Main{
		RuleSource:            "REQUEST-942-APPLICATION-ATTACK-SQLI.conf",
		CustomRules:           "custom_rules.conf",
		Exclusions:            "rule-exclusions.conf",
		MinParanoiaLevel:      3,
		CommandTimeoutSeconds: 30,
		Container: Container{
			Name:          "modsecurity",
			DeployedRules: "/etc/modsecurity.d/custom_rules.conf",
		},
	}
}

// CommandTimeout returns CommandTimeoutSeconds as a time.Duration.
func (c Main) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// Load reads a YAML config file on top of the defaults, so a partial file
// only overrides what it names.
func Load(path string) (Main, error) {
	c := Default()

	bb, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(bb, &c); err != nil {
		return c, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	return c, nil
}
