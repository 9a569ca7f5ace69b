package main

import (
	"fmt"
	"io"
	"os"

	"seqtag/internal/config"
	"seqtag/internal/logging"
	"seqtag/internal/server"
	"seqtag/pkg/bookkeeper"
	"seqtag/pkg/corpus"
	"seqtag/pkg/feats"
	"seqtag/pkg/maxent"
	"seqtag/pkg/storage"
	"seqtag/pkg/tagger"
	"seqtag/pkg/trainer"
	"seqtag/pkg/transmodel"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(&logging.LoggingConfig{Level: opts.LogLevel})
	if err != nil {
		return err
	}

	input, closeIn, err := openInput(opts)
	if err != nil {
		return err
	}
	defer closeIn()

	output, closeOut, err := openOutput(opts)
	if err != nil {
		return err
	}
	defer closeOut()

	var features []*feats.Feature
	needsFeatures := !opts.InputFeaturized &&
		opts.Task != config.TaskTransModelTrain && opts.Task != config.TaskPrintWeights
	if needsFeatures {
		features, err = feats.LoadFeatureSet(opts.ConfigFile)
		if err != nil {
			return err
		}
	}

	switch opts.Task {
	case config.TaskTransModelTrain:
		return runTransModelTrain(opts, input, log)
	case config.TaskTrain, config.TaskTrainFeaturize, config.TaskMostInformative:
		return runTrain(opts, features, input, output, log)
	default:
		return runTag(opts, features, input, output, log)
	}
}

func runTransModelTrain(opts *config.Options, input io.Reader, log *logging.Logger) error {
	model, err := transmodel.New(opts.TransModelOrder, opts.Smooth, log)
	if err != nil {
		return err
	}

	reader := corpus.NewReader(input, log)
	header, err := reader.ReadHeader()
	if err != nil {
		return fmt.Errorf("failed to read input header: %w", err)
	}
	goldIdx, ok := header.Index[opts.GoldTagField]
	if !ok {
		return fmt.Errorf("input has no gold label column named %q", opts.GoldTagField)
	}

	for {
		sen, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		tags := make([]string, len(sen.Tokens))
		for i, tok := range sen.Tokens {
			if goldIdx >= len(tok) {
				return fmt.Errorf("token without a gold label column")
			}
			tags[i] = tok[goldIdx]
		}
		model.ObsSequence(tags)
	}

	if err := model.Compile(); err != nil {
		return err
	}
	return model.Save(opts.TransModelFilename())
}

func runTrain(opts *config.Options, features []*feats.Feature, input io.Reader, output io.Writer, log *logging.Logger) error {
	tr, err := trainer.New(features, trainer.Options{
		Cutoff:          opts.Cutoff,
		GoldField:       opts.GoldTagField,
		UsedFeatsFile:   opts.UsedFeats,
		InputFeaturized: opts.InputFeaturized,
	}, log)
	if err != nil {
		return err
	}
	if err := tr.ReadEvents(input); err != nil {
		return err
	}

	switch opts.Task {
	case config.TaskMostInformative:
		ev, err := tr.BuildEvents()
		if err != nil {
			return err
		}
		return ev.MostInformativeFeatures(output, -1)
	case config.TaskTrainFeaturize:
		ev, err := tr.BuildEvents()
		if err != nil {
			return err
		}
		if opts.FeaturizedFormat == "parquet" {
			if opts.OutputFile == "" {
				return fmt.Errorf("the parquet sink needs an output file (-o)")
			}
			return storage.NewParquetSink(opts.OutputFile).Write(ev)
		}
		return storage.WriteFeaturizedTSV(ev, output)
	default:
		if err := tr.Train(); err != nil {
			return err
		}
		return tr.Save(opts.ModelFilename(), opts.FeatCounterFilename(), opts.LabelCounterFilename())
	}
}

func runTag(opts *config.Options, features []*feats.Feature, input io.Reader, output io.Writer, log *logging.Logger) error {
	log.Info("loading observation model...")
	model, err := maxent.Load(opts.ModelFilename())
	if err != nil {
		return err
	}
	model.SetLogger(log)
	featBook, err := bookkeeper.Load(opts.FeatCounterFilename())
	if err != nil {
		return err
	}
	labelBook, err := bookkeeper.Load(opts.LabelCounterFilename())
	if err != nil {
		return err
	}
	log.Info("done")

	var trans *transmodel.Model
	if opts.Task == config.TaskTag || opts.Task == config.TaskServe {
		log.Info("loading transition model...")
		trans, err = transmodel.Load(opts.TransModelFilename())
		if err != nil {
			return err
		}
		trans.SetLogger(log)
		log.Info("done")
	}

	t, err := tagger.New(tagger.Config{
		Features:        features,
		Model:           model,
		Trans:           trans,
		FeatBook:        featBook,
		LabelBook:       labelBook,
		LMW:             opts.LMW,
		TagFieldName:    opts.TagField,
		InputFeaturized: opts.InputFeaturized,
		Log:             log,
	})
	if err != nil {
		return err
	}

	switch opts.Task {
	case config.TaskPrintWeights:
		return t.PrintWeights(output, opts.PrintWeightsN)
	case config.TaskTagFeaturize:
		return t.TagStream(input, output, tagger.ModeFeaturize)
	case config.TaskServe:
		return server.New(t, log).Run(opts.ServeAddr)
	default:
		if opts.InputDir != "" {
			return t.TagDir(opts.InputDir, opts.InputDir+"_out", tagger.ModeTag)
		}
		return t.TagStream(input, output, tagger.ModeTag)
	}
}

func openInput(opts *config.Options) (io.Reader, func(), error) {
	if opts.InputFile == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(opts.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(opts *config.Options) (io.Writer, func(), error) {
	if opts.OutputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(opts.OutputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
