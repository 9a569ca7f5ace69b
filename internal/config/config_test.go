package config

import (
	"strings"
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := ParseFlags([]string{"-m", "mymodel", "-c", "feats.yaml", "train"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Task != TaskTrain {
		t.Errorf("task = %q", opts.Task)
	}
	if opts.TransModelOrder != 3 || opts.LMW != 1.0 || opts.Cutoff != 1 {
		t.Errorf("defaults wrong: %+v", opts)
	}
	if opts.ModelFilename() != "mymodel.model" {
		t.Errorf("model filename = %q", opts.ModelFilename())
	}
	if opts.TransModelFilename() != "mymodel.transmodel" {
		t.Errorf("transmodel filename = %q", opts.TransModelFilename())
	}
	if opts.FeatCounterFilename() != "mymodel.featureNumbers.gz" {
		t.Errorf("feature numbers filename = %q", opts.FeatCounterFilename())
	}
	if opts.LabelCounterFilename() != "mymodel.labelNumbers.gz" {
		t.Errorf("label numbers filename = %q", opts.LabelCounterFilename())
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no task", []string{"-m", "m"}, "exactly one task"},
		{"unknown task", []string{"-m", "m", "-c", "f", "frobnicate"}, "unknown task"},
		{"missing model", []string{"-c", "f", "train"}, "model name"},
		{"bad order", []string{"-m", "m", "-c", "f", "-trans-model-order", "4", "train"}, "order"},
		{"featurized conflict", []string{"-m", "m", "-input-featurized", "train-featurize"}, "already featurized"},
		{"input conflict", []string{"-m", "m", "-c", "f", "-i", "a", "-d", "b", "tag"}, "mutually exclusive"},
		{"missing config", []string{"-m", "m", "train"}, "feature configuration"},
		{"bad sink", []string{"-m", "m", "-c", "f", "-featurized-format", "xml", "train-featurize"}, "featurized format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlags(tt.args)
			if err == nil {
				t.Fatalf("expected an error for %v", tt.args)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestPrintWeightsNeedsNoConfig(t *testing.T) {
	if _, err := ParseFlags([]string{"-m", "m", "print-weights"}); err != nil {
		t.Fatalf("print-weights should not require a feature config: %v", err)
	}
	if _, err := ParseFlags([]string{"-m", "m", "transmodel-train"}); err != nil {
		t.Fatalf("transmodel-train should not require a feature config: %v", err)
	}
}
