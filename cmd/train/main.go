package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/database"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/trainer"
	"wifi-pose-backend/pkg/config"
)

type Config struct {
	dataPath   string
	modelPath  string
	curvePath  string
	training   trainer.Config
	clickhouse bool
}

var cfg *config.Config
var flags Config

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg = config.Load()

	flags.training = trainer.DefaultConfig()
	flag.StringVar(&flags.dataPath, "data", cfg.DatasetPath, "Path to the training dataset")
	flag.StringVar(&flags.modelPath, "model", cfg.ModelPath, "Where to store the trained model")
	flag.StringVar(&flags.curvePath, "curve", cfg.LossCurvePath, "Where to store the loss curve")
	flag.IntVar(&flags.training.Epochs, "epochs", cfg.TrainEpochs, "Number of epochs")
	flag.IntVar(&flags.training.BatchSize, "batch", cfg.TrainBatchSize, "Mini-batch size")
	flag.Float64Var(&flags.training.LearningRate, "lr", cfg.TrainLearningRate, "Adam learning rate")
	flag.Float64Var(&flags.training.ValidationRatio, "val", flags.training.ValidationRatio, "Share of rows held out for validation")
	flag.Int64Var(&flags.training.Seed, "seed", cfg.RandomSeed, "Random seed")
	flag.IntVar(&flags.training.Workers, "workers", cfg.Workers, "Number of validation workers")
	flag.BoolVar(&flags.clickhouse, "clickhouse", cfg.ClickHouseEnabled, "Record epoch statistics in ClickHouse")
	flag.Parse()

	log.Printf("%+v", flags)

	if err := run(); err != nil {
		log.Fatalf("Training failed: %v", err)
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

	var model = classifier.NewModel(rand.New(rand.NewSource(flags.training.Seed)))
	log.Println("Model", model.Topology(), "params", ml.CountParams(model.Params()))

	t, err := trainer.New(flags.training, model)
	if err != nil {
		return err
	}

	if flags.clickhouse {
		db, err := database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			return err
		}
		defer db.Close()

		t.OnEpoch = func(stats trainer.EpochStats) {
			if err := db.SaveTrainingEpoch(ctx, stats); err != nil {
				log.Printf("Error saving epoch %d: %v", stats.Epoch, err)
			}
		}
	}

	if _, err := t.Fit(ctx, rows); err != nil {
		return err
	}
	return t.Persist(flags.modelPath, flags.curvePath)
}
