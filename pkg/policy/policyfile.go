package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the on-disk form of a Policy:
//
//	baseline:
//	  - range: "0.0.0.0 - 0.0.0.0"
//	    name: "Allow All Azure Traffic"
//	  - range: "20.24.94.0 - 20.24.94.215"
type PolicyFile struct {
	Baseline []PolicyEntry `yaml:"baseline"`
}

// PolicyEntry is one approved range and its optional rule name
type PolicyEntry struct {
	Range string `yaml:"range"`
	Name  string `yaml:"name,omitempty"`
}

// LoadPolicyFile reads a YAML policy and replaces the builtin baseline with it.
// Unlike whitelist entries, a malformed baseline entry fails the whole load.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes YAML policy bytes
func ParsePolicy(data []byte) (Policy, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	if len(file.Baseline) == 0 {
		return Policy{}, fmt.Errorf("policy has no baseline ranges")
	}

	ranges := make([]IPRange, 0, len(file.Baseline))
	for i, entry := range file.Baseline {
		r, err := ParseRange(entry.Range)
		if err != nil {
			return Policy{}, fmt.Errorf("baseline entry %d: %w", i+1, err)
		}
		r.label = entry.Name
		ranges = append(ranges, r)
	}
	return NewPolicy(ranges), nil
}

// ToFile converts a Policy back into its on-disk form
func (p Policy) ToFile() PolicyFile {
	file := PolicyFile{Baseline: make([]PolicyEntry, 0, len(p.baseline))}
	for _, r := range p.baseline {
		file.Baseline = append(file.Baseline, PolicyEntry{Range: r.String(), Name: r.Label()})
	}
	return file
}
