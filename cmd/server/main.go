package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wifi-pose-backend/internal/api"
	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/database"
	"wifi-pose-backend/internal/mqtt"
	"wifi-pose-backend/internal/services"
	"wifi-pose-backend/pkg/config"
)

func main() {
	log.Println("Starting WiFi Pose Backend...")

	// Load configuration
	cfg := config.Load()
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to the trained model")
	flag.StringVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "HTTP port")
	flag.Parse()

	// === Load Model ===
	model, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	log.Printf("Loaded model %s (%s, version %s)", cfg.ModelPath, model.Topology(), model.Version())

	inferenceService, err := services.NewInferenceService(model)
	if err != nil {
		log.Fatalf("Failed to initialize inference service: %v", err)
	}

	// === Initialize ClickHouse (optional) ===
	var store services.PredictionStore
	var history api.PredictionHistory
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		store = db
		history = db
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize Prediction Service ===
	predictionConfig := services.DefaultPredictionServiceConfig()
	predictionConfig.MinRequestInterval = time.Duration(cfg.MQTTMinIntervalMs) * time.Millisecond

	predictionService := services.NewPredictionService(
		inferenceService,
		store,
		predictionConfig,
	)

	// === Create HTTP API (installs the live feed hook) ===
	server := api.NewServer(api.ServerConfig{
		Port:          cfg.HTTPPort,
		UploadDir:     cfg.UploadDir,
		ModelTopology: model.Topology().String(),
	}, predictionService, history)
	go server.Feed().Run(ctx)

	go predictionService.Start(ctx)

	// === Initialize MQTT bridge (optional) ===
	if cfg.MQTTEnabled {
		log.Println("Connecting to MQTT broker...")
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			StatusTopic: cfg.MQTTTopicStatus,
		})
		if err != nil {
			log.Fatalf("Failed to initialize MQTT client: %v", err)
		}
		defer mqttClient.Close()

		// Subscriber feeds the prediction service, publisher drains its results
		subscriber := mqtt.NewSubscriber(
			mqttClient.GetNativeClient(),
			mqtt.SubscriberConfig{RequestTopic: cfg.MQTTTopicInferReq},
			predictionService.RequestChan,
		)
		if err := subscriber.SubscribeAll(); err != nil {
			log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
		}
		mqttClient.OnConnect(subscriber.Resubscribe)

		publisher := mqtt.NewPublisher(
			mqttClient.GetNativeClient(),
			mqtt.PublisherConfig{ResultTopic: cfg.MQTTTopicInferResult},
			predictionService.ResultChan,
		)
		go publisher.Start(ctx)
	}

	// === Start HTTP API ===
	go func() {
		if err := server.Start(); err != nil {
			log.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	// === Log startup info ===
	log.Println("=== WiFi Pose Backend is running ===")
	log.Printf("HTTP: POST /infer on port %s", cfg.HTTPPort)
	log.Printf("Live feed: ws://localhost:%s/ws/predictions", cfg.HTTPPort)
	log.Printf("ClickHouse prediction log: %v", cfg.ClickHouseEnabled)
	if cfg.MQTTEnabled {
		log.Printf("MQTT Topics:")
		log.Printf("  - Inference Req:    %s", cfg.MQTTTopicInferReq)
		log.Printf("  - Inference Result: %s", cfg.MQTTTopicInferResult)
		log.Printf("  - Status:           %s", cfg.MQTTTopicStatus)
		log.Printf("Per-device rate limit: %v", predictionConfig.MinRequestInterval)
	}
	log.Println("Send SIGHUP to reload the model, Ctrl+C to exit...")

	// === Wait for signals ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reloadModel(inferenceService, cfg.ModelPath)
				continue
			}
			running = false
		}
	}

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	if err := server.Shutdown(); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}

	log.Println("Shutdown complete. Goodbye!")
}

// reloadModel swaps in the model file from disk; the old model stays
// active when the new one cannot be loaded
func reloadModel(inferenceService *services.InferenceService, path string) {
	model, err := classifier.Load(path)
	if err != nil {
		log.Printf("Model reload failed, keeping version %s: %v", inferenceService.ModelVersion(), err)
		return
	}
	if err := inferenceService.Reload(model); err != nil {
		log.Printf("Model reload failed: %v", err)
		return
	}
	log.Printf("Reloaded model %s (version %s)", path, model.Version())
}
