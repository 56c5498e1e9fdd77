package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/manningwu07/SIGRN/IO"
	"github.com/manningwu07/SIGRN/params"
)

var (
	dataPath    string
	truthPath   string
	configPath  string
	outPath     string
	logPath     string
	seedFlag    uint64
	epochsFlag  int
	workersFlag int
	cellsAsRows bool
	log1pFlag   bool
	debugFlag   bool
)

func init() {
	flag.StringVar(&dataPath, "data", "", "Expression CSV (BEELINE ExpressionData.csv)")
	flag.StringVar(&truthPath, "truth", "", "Reference network CSV (Gene1,Gene2); enables evaluation")
	flag.StringVar(&configPath, "config", "", "JSON file overriding the default training config")
	flag.StringVar(&outPath, "out", "edges.csv", "Where to write the ranked edge list")
	flag.StringVar(&logPath, "log", "training_log.csv", "Per-epoch metrics CSV, empty disables")
	flag.Uint64Var(&seedFlag, "seed", 0, "Random seed, 0 keeps the config value")
	flag.IntVar(&epochsFlag, "epochs", 0, "Number of epochs, 0 keeps the config value")
	flag.IntVar(&workersFlag, "workers", 0, "Goroutines per batch, 0 keeps the config value")
	flag.BoolVar(&cellsAsRows, "cells-as-rows", false, "Expression file is cell x gene instead of gene x cell")
	flag.BoolVar(&log1pFlag, "log1p", false, "Apply log(1+x) to the expression values")
	flag.BoolVar(&debugFlag, "debug", false, "Print debug lines")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	if dataPath == "" {
		flag.Usage()
		return fmt.Errorf("-data is required")
	}
	if configPath != "" {
		if err := params.LoadConfigJSON(configPath); err != nil {
			return err
		}
	}
	if seedFlag != 0 {
		params.Config.Seed = seedFlag
	}
	if epochsFlag > 0 {
		params.Config.NEpochs = epochsFlag
	}
	if workersFlag > 0 {
		params.Config.Workers = workersFlag
	}
	if debugFlag {
		params.Config.Debug = true
	}

	ds, err := IO.LoadExpressionCSV(dataPath, IO.LoadOptions{CellsAsRows: cellsAsRows, Log1p: log1pFlag})
	if err != nil {
		return err
	}
	cells, genes := ds.X.Dims()
	fmt.Printf("Loaded %d cells x %d genes from %s\n", cells, genes, dataPath)

	var truth []IO.Edge
	if truthPath != "" {
		truth, err = IO.LoadGroundTruthCSV(truthPath)
		if err != nil {
			return err
		}
		kept := IO.Restrict(truth, ds.GeneIndex())
		fmt.Printf("Reference network: %d edges, %d between loaded genes\n", len(truth), len(kept))
		if len(kept) == 0 {
			fmt.Println("No reference edge between loaded genes, evaluation disabled.")
			truth = nil
		}
	}

	trainer, err := NewTrainer(params.Config, ds, truth)
	if err != nil {
		return err
	}
	if logPath != "" {
		trainer.Log, err = IO.NewMetricLog(logPath, logFields...)
		if err != nil {
			return err
		}
		defer trainer.Log.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t1 := time.Now()
	rep, err := trainer.Fit(ctx)
	if IsSingular(err) {
		return fmt.Errorf("I-A became singular, try a smaller lr_adj or a larger max condition: %w", err)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Println("\nInterrupted, exporting the current adjacency.")
		rep.Adjacency = trainer.Model.EffectiveAdjacency()
		if rep.BestAdjacency == nil {
			rep.BestAdjacency = rep.Adjacency
		}
	}
	fmt.Printf("\nTime taken to train: %s (%d epochs)\n", time.Since(t1), rep.Epochs)

	if rep.Best != nil {
		fmt.Printf("Best AUPRC %.4f (ratio %.3f) at epoch %d, AUROC %.4f, EPR %.3f\n",
			rep.Best.AUPRC, rep.Best.AUPRCRatio, rep.BestEpoch, rep.Best.AUROC, rep.Best.EPR)
	}
	if err := IO.ExportEdgeList(outPath, ds.Genes, rep.BestAdjacency); err != nil {
		return err
	}
	fmt.Printf("Saved ranked edge list to %s\n", outPath)
	return nil
}
