package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"wifi-pose-backend/internal/database"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/models"
	"wifi-pose-backend/pkg/config"
)

type Config struct {
	out                 string
	samples             int
	presenceProbability float64
	noiseLevel          float64
	seed                int64
	sample              bool
	perCondition        int
	conditions          string
	clickhouse          bool
}

var cfg *config.Config
var flags Config

func main() {
	cfg = config.Load()

	flag.StringVar(&flags.out, "out", cfg.DatasetPath, "Path of the generated CSV")
	flag.IntVar(&flags.samples, "n", cfg.NumSamples, "Number of random samples")
	flag.Float64Var(&flags.presenceProbability, "p", cfg.PresenceProbability, "Probability that a sample contains a human")
	flag.Float64Var(&flags.noiseLevel, "noise", cfg.NoiseLevel, "Noise level of samples with a human")
	flag.Int64Var(&flags.seed, "seed", cfg.RandomSeed, "Random seed")
	flag.BoolVar(&flags.sample, "sample", false, "Write a stratified sample file instead of a random dataset")
	flag.IntVar(&flags.perCondition, "per-condition", 10, "Samples per condition in -sample mode")
	flag.StringVar(&flags.conditions, "conditions", "stand,sit,kneel,sleep,no_human", "Conditions in -sample mode")
	flag.BoolVar(&flags.clickhouse, "clickhouse", cfg.ClickHouseEnabled, "Export the dataset to ClickHouse")
	flag.Parse()

	log.Printf("%+v", flags)

	if err := run(); err != nil {
		log.Fatalf("Generate failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var builder = dataset.NewBuilder(rand.New(rand.NewSource(flags.seed)))
	if err := builder.SetNoiseLevel(flags.noiseLevel); err != nil {
		return err
	}

	var rows []models.DatasetRow
	var err error
	if flags.sample {
		conds, cerr := parseConditions(flags.conditions)
		if cerr != nil {
			return cerr
		}
		rows, err = builder.BuildStratified(conds, flags.perCondition, true)
	} else {
		rows, err = builder.Build(ctx, flags.samples, flags.presenceProbability)
	}
	if err != nil {
		return err
	}

	if err := dataset.SaveCSV(flags.out, rows); err != nil {
		return err
	}
	log.Printf("Generated %d samples into %s", len(rows), flags.out)
	fmt.Print(dataset.Summarize(rows))

	if !flags.clickhouse {
		return nil
	}

	db, err := database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveDatasetRows(ctx, uuid.New().String(), rows)
}

func parseConditions(list string) ([]dataset.Condition, error) {
	var result []dataset.Condition
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := dataset.ParseCondition(name)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no conditions given", models.ErrInvalidArgument)
	}
	return result, nil
}
