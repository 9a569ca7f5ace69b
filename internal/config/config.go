package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Valid terminal tasks. Exactly one must be given as the first
// positional argument.
const (
	TaskTransModelTrain = "transmodel-train"
	TaskTrain           = "train"
	TaskTrainFeaturize  = "train-featurize"
	TaskMostInformative = "most-informative-features"
	TaskTag             = "tag"
	TaskTagFeaturize    = "tag-featurize"
	TaskPrintWeights    = "print-weights"
	TaskServe           = "serve"
)

var validTasks = map[string]bool{
	TaskTransModelTrain: true,
	TaskTrain:           true,
	TaskTrainFeaturize:  true,
	TaskMostInformative: true,
	TaskTag:             true,
	TaskTagFeaturize:    true,
	TaskPrintWeights:    true,
	TaskServe:           true,
}

// Options carries the full CLI configuration of a run.
type Options struct {
	Task string

	ConfigFile string
	ModelName  string

	ModelExt          string
	TransModelExt     string
	FeatureNumbersExt string
	LabelNumbersExt   string

	TransModelOrder int
	LMW             float64
	Cutoff          int
	Smooth          float64

	TagField     string
	GoldTagField string

	UsedFeats       string
	InputFeaturized bool

	InputFile  string
	OutputFile string
	InputDir   string

	FeaturizedFormat string
	PrintWeightsN    int

	ServeAddr string

	LogLevel string
}

// LoadEnv loads environment variables from a .env file if present.
func LoadEnv() {
	_ = godotenv.Load()
}

// ParseFlags parses the command line into Options. The task name is
// the single positional argument.
func ParseFlags(args []string) (*Options, error) {
	LoadEnv()

	opts := &Options{
		ModelExt:          ".model",
		TransModelExt:     ".transmodel",
		FeatureNumbersExt: ".featureNumbers.gz",
		LabelNumbersExt:   ".labelNumbers.gz",
		TransModelOrder:   3,
		LMW:               1.0,
		Cutoff:            1,
		Smooth:            1e-15,
		TagField:          "label",
		GoldTagField:      "gold",
		FeaturizedFormat:  "tsv",
		PrintWeightsN:     100,
		ServeAddr:         ":8000",
		LogLevel:          envOr("SEQTAG_LOG_LEVEL", "info"),
	}

	fs := flag.NewFlagSet("seqtag", flag.ContinueOnError)
	fs.StringVar(&opts.ConfigFile, "c", "", "read feature configuration from FILE")
	fs.StringVar(&opts.ConfigFile, "config-file", "", "read feature configuration from FILE")
	fs.StringVar(&opts.ModelName, "m", "", "name of the (trans) model to be read/written")
	fs.StringVar(&opts.ModelName, "model", "", "name of the (trans) model to be read/written")
	fs.StringVar(&opts.ModelExt, "model-ext", opts.ModelExt, "extension of the classifier model file")
	fs.StringVar(&opts.TransModelExt, "trans-model-ext", opts.TransModelExt, "extension of the transition model file")
	fs.IntVar(&opts.TransModelOrder, "trans-model-order", opts.TransModelOrder, "order of the transition model (2 or 3)")
	fs.StringVar(&opts.FeatureNumbersExt, "feat-num-ext", opts.FeatureNumbersExt, "extension of the feature numbers file")
	fs.StringVar(&opts.LabelNumbersExt, "label-num-ext", opts.LabelNumbersExt, "extension of the label numbers file")
	fs.Float64Var(&opts.LMW, "l", opts.LMW, "relative weight of the language model")
	fs.Float64Var(&opts.LMW, "language-model-weight", opts.LMW, "relative weight of the language model")
	fs.IntVar(&opts.Cutoff, "O", opts.Cutoff, "global feature occurrence cutoff")
	fs.IntVar(&opts.Cutoff, "cutoff", opts.Cutoff, "global feature occurrence cutoff")
	fs.Float64Var(&opts.Smooth, "smooth", opts.Smooth, "smoothing floor for unseen transitions")
	fs.StringVar(&opts.UsedFeats, "u", "", "limit used features to those in FILE")
	fs.StringVar(&opts.UsedFeats, "used-feats", "", "limit used features to those in FILE")
	fs.StringVar(&opts.TagField, "t", opts.TagField, "field where the generated labels are written (tagging)")
	fs.StringVar(&opts.TagField, "tag-field", opts.TagField, "field where the generated labels are written (tagging)")
	fs.StringVar(&opts.GoldTagField, "g", opts.GoldTagField, "field containing the gold labels (training)")
	fs.StringVar(&opts.GoldTagField, "gold-tag-field", opts.GoldTagField, "field containing the gold labels (training)")
	fs.BoolVar(&opts.InputFeaturized, "input-featurized", false, "input is already featurized (see train-featurize/tag-featurize)")
	fs.StringVar(&opts.InputFile, "i", "", "use input file instead of STDIN")
	fs.StringVar(&opts.InputFile, "input", "", "use input file instead of STDIN")
	fs.StringVar(&opts.OutputFile, "o", "", "use output file instead of STDOUT")
	fs.StringVar(&opts.OutputFile, "output", "", "use output file instead of STDOUT")
	fs.StringVar(&opts.InputDir, "d", "", "process all files in DIR instead of STDIN")
	fs.StringVar(&opts.InputDir, "input-dir", "", "process all files in DIR instead of STDIN")
	fs.StringVar(&opts.FeaturizedFormat, "featurized-format", opts.FeaturizedFormat, "featurized event sink format (tsv or parquet)")
	fs.IntVar(&opts.PrintWeightsN, "n", opts.PrintWeightsN, "number of weights to print per label")
	fs.StringVar(&opts.ServeAddr, "addr", opts.ServeAddr, "listen address of the tagging service")
	fs.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("exactly one task must be given, see --help")
	}
	opts.Task = fs.Arg(0)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks cross-flag consistency.
func (o *Options) Validate() error {
	if !validTasks[o.Task] {
		return fmt.Errorf("unknown task %q", o.Task)
	}
	if o.ModelName == "" {
		return fmt.Errorf("model name (-m) is required")
	}
	if o.TransModelOrder != 2 && o.TransModelOrder != 3 {
		return fmt.Errorf("transition model order should be 2 or 3, got %d", o.TransModelOrder)
	}
	if o.LMW < 0 {
		return fmt.Errorf("language model weight must be non-negative, got %g", o.LMW)
	}
	if o.InputFeaturized && (o.Task == TaskTrainFeaturize || o.Task == TaskTagFeaturize) {
		return fmt.Errorf("can not featurize input which is already featurized")
	}
	if o.InputFile != "" && o.InputDir != "" {
		return fmt.Errorf("-i and -d are mutually exclusive")
	}
	if o.FeaturizedFormat != "tsv" && o.FeaturizedFormat != "parquet" {
		return fmt.Errorf("unknown featurized format %q", o.FeaturizedFormat)
	}
	needsConfig := !o.InputFeaturized && o.Task != TaskTransModelTrain && o.Task != TaskPrintWeights
	if needsConfig && o.ConfigFile == "" {
		return fmt.Errorf("feature configuration (-c) is required for task %q", o.Task)
	}
	return nil
}

// Derived artifact file names.

func (o *Options) ModelFilename() string      { return o.ModelName + o.ModelExt }
func (o *Options) TransModelFilename() string { return o.ModelName + o.TransModelExt }

func (o *Options) FeatCounterFilename() string {
	return o.ModelName + o.FeatureNumbersExt
}

func (o *Options) LabelCounterFilename() string {
	return o.ModelName + o.LabelNumbersExt
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
