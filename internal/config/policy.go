package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/notepress/internal/formatter"
)

// policyFile is the shape of the optional formatting policy YAML.
type policyFile struct {
	Compact formatter.Policy `yaml:"compact"`
	Legacy  formatter.Policy `yaml:"legacy"`
}

// LoadPolicies resolves the compact and legacy formatting policies:
// built-in defaults, overlaid by the policy file if configured, then by
// the individual env overrides.
func (c Config) LoadPolicies() (compact, legacy formatter.Policy, err error) {
	compact = formatter.CompactPolicy()
	legacy = formatter.LegacyPolicy()

	if c.PolicyFile != "" {
		data, readErr := os.ReadFile(c.PolicyFile)
		if readErr != nil {
			return compact, legacy, fmt.Errorf("read policy file: %w", readErr)
		}
		var pf policyFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return compact, legacy, fmt.Errorf("parse policy file: %w", err)
		}
		compact = mergePolicy(compact, pf.Compact)
		legacy = mergePolicy(legacy, pf.Legacy)
	}

	if c.BlockCap > 0 {
		compact.BlockCap = c.BlockCap
	}
	if c.GateThreshold > 0 {
		compact.GateThreshold = c.GateThreshold
		legacy.GateThreshold = c.GateThreshold
	}
	return compact, legacy, nil
}

// mergePolicy overlays the non-zero fields of over onto base.
// AnchorsLast is taken from over unconditionally since false is a
// meaningful value only when the file omits the section entirely, in
// which case over is the zero Policy and matches the default anyway.
func mergePolicy(base, over formatter.Policy) formatter.Policy {
	out := base
	if over.BlockCap != 0 {
		out.BlockCap = over.BlockCap
	}
	if over.GateThreshold != 0 {
		out.GateThreshold = over.GateThreshold
	}
	if over.MaxFragmentLen != 0 {
		out.MaxFragmentLen = over.MaxFragmentLen
	}
	if over.MaxRunLen != 0 {
		out.MaxRunLen = over.MaxRunLen
	}
	if over.AnchorsLast {
		out.AnchorsLast = true
	}
	return out
}
