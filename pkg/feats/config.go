package feats

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// The feature configuration is a YAML document delimited by explicit
// document markers, so it can be embedded in larger files.
const (
	docStartMarker = "%YAML 1.1"
	docEndMarker   = "..."
)

type configDefaults struct {
	Cutoff *int `yaml:"cutoff"`
	Radius *int `yaml:"radius"`
}

type configFeature struct {
	Name       string                 `yaml:"name"`
	Type       string                 `yaml:"type"`
	ActionName string                 `yaml:"action_name"`
	Fields     string                 `yaml:"fields"`
	Radius     *int                   `yaml:"radius"`
	Cutoff     *int                   `yaml:"cutoff"`
	Options    map[string]interface{} `yaml:"options"`
}

type configDoc struct {
	Default  *configDefaults `yaml:"default"`
	Features []configFeature `yaml:"features"`
}

// LoadFeatureSet reads the feature configuration file and returns the
// bound-order feature list.
func LoadFeatureSet(filename string) ([]*Feature, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}
	return ParseFeatureSet(string(raw))
}

// ParseFeatureSet parses the YAML document between the start and end
// markers and builds the declared features in order.
func ParseFeatureSet(content string) ([]*Feature, error) {
	doc, err := sliceDocument(content)
	if err != nil {
		return nil, err
	}

	var cfg configDoc
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("malformed feature configuration: %w", err)
	}
	if len(cfg.Features) == 0 {
		return nil, fmt.Errorf("feature configuration declares no features")
	}

	defaultCutoff := 1
	defaultRadius := -1
	if cfg.Default != nil {
		if cfg.Default.Cutoff != nil {
			defaultCutoff = *cfg.Default.Cutoff
		}
		if cfg.Default.Radius != nil {
			defaultRadius = *cfg.Default.Radius
		}
	}

	features := make([]*Feature, 0, len(cfg.Features))
	seen := make(map[string]bool)
	for _, fc := range cfg.Features {
		if fc.Name == "" {
			return nil, fmt.Errorf("feature declaration without a name")
		}
		if seen[fc.Name] {
			return nil, fmt.Errorf("duplicate feature name %q", fc.Name)
		}
		seen[fc.Name] = true
		if fc.ActionName == "" {
			return nil, fmt.Errorf("feature %q: action_name is required", fc.Name)
		}
		if fc.Fields == "" {
			return nil, fmt.Errorf("feature %q: fields is required", fc.Name)
		}

		radius := defaultRadius
		if fc.Radius != nil {
			radius = *fc.Radius
		}
		cutoff := defaultCutoff
		if fc.Cutoff != nil {
			cutoff = *fc.Cutoff
		}

		fields := strings.Split(fc.Fields, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		options := make(Options, len(fc.Options))
		for k, v := range fc.Options {
			options[k] = fmt.Sprint(v)
		}

		feature, err := NewFeature(fc.Type, fc.Name, fc.ActionName, fields, radius, cutoff, options)
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return features, nil
}

// sliceDocument cuts the configuration to the part between the
// document start marker and the last end marker.
func sliceDocument(content string) (string, error) {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == docStartMarker {
			start = i
			break
		}
	}
	if start == -1 {
		return "", fmt.Errorf("config file has no document start marker (%s)", docStartMarker)
	}
	end := -1
	for i := len(lines) - 1; i > start; i-- {
		if strings.TrimRight(lines[i], "\r") == docEndMarker {
			end = i
			break
		}
	}
	if end == -1 {
		return "", fmt.Errorf("config file has no document end marker (%s)", docEndMarker)
	}
	return strings.Join(lines[start+1:end], "\n"), nil
}
