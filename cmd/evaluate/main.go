package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/evaluator"
	"wifi-pose-backend/pkg/config"
)

type Config struct {
	dataPath   string
	modelPath  string
	reportPath string
	testRatio  float64
	seed       int64
	workers    int
}

var flags Config

func main() {
	var cfg = config.Load()

	flag.StringVar(&flags.dataPath, "data", cfg.DatasetPath, "Path to the labeled dataset")
	flag.StringVar(&flags.modelPath, "model", cfg.ModelPath, "Path to the trained model")
	flag.StringVar(&flags.reportPath, "report", cfg.ReportPath, "Where to store the JSON report, empty to skip")
	flag.Float64Var(&flags.testRatio, "test", 0.2, "Share of rows held out for evaluation")
	flag.Int64Var(&flags.seed, "seed", cfg.EvalSeed, "Random seed of the held-out split")
	flag.IntVar(&flags.workers, "workers", cfg.Workers, "Number of prediction workers")
	flag.Parse()

	log.Printf("%+v", flags)

	if err := run(); err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := dataset.LoadCSV(flags.dataPath)
	if err != nil {
		return err
	}
	log.Println("Loaded dataset", len(rows))

	model, err := classifier.Load(flags.modelPath)
	if err != nil {
		return err
	}
	log.Println("Loaded model", model.Version())

	var e = evaluator.New(model, flags.workers)
	report, err := e.Evaluate(ctx, rows, rand.New(rand.NewSource(flags.seed)), flags.testRatio)
	if err != nil {
		return err
	}
	fmt.Print(report)

	if flags.reportPath == "" {
		return nil
	}
	if err := report.SaveJSON(flags.reportPath); err != nil {
		return err
	}
	log.Println("Stored report", flags.reportPath)
	return nil
}
