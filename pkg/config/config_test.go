package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()
	if cfg.HTTPPort != "5000" {
		t.Errorf("Expected port 5000, got %s", cfg.HTTPPort)
	}
	if cfg.ModelPath != "models/pose_lstm.bin" {
		t.Errorf("Expected default model path, got %s", cfg.ModelPath)
	}
	if cfg.PresenceProbability != 0.7 {
		t.Errorf("Expected presence probability 0.7, got %v", cfg.PresenceProbability)
	}
	if cfg.TrainEpochs != 50 || cfg.TrainBatchSize != 32 {
		t.Errorf("Expected 50 epochs of batch 32, got %d/%d", cfg.TrainEpochs, cfg.TrainBatchSize)
	}
	if cfg.MQTTEnabled || cfg.ClickHouseEnabled {
		t.Errorf("Expected MQTT and ClickHouse to be disabled by default")
	}
	if cfg.MQTTTopicInferReq != "csi/+/infer" {
		t.Errorf("Expected request topic csi/+/infer, got %s", cfg.MQTTTopicInferReq)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("RANDOM_SEED", "7")
	t.Setenv("NOISE_LEVEL", "0.25")
	t.Setenv("MQTT_ENABLED", "true")

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.RandomSeed != 7 {
		t.Errorf("Expected seed 7, got %d", cfg.RandomSeed)
	}
	if cfg.EvalSeed != 8 {
		t.Errorf("Expected evaluation seed 8, got %d", cfg.EvalSeed)
	}
	if cfg.NoiseLevel != 0.25 {
		t.Errorf("Expected noise 0.25, got %v", cfg.NoiseLevel)
	}
	if !cfg.MQTTEnabled {
		t.Errorf("Expected MQTT to be enabled")
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TRAIN_EPOCHS=3\nUPLOAD_DIR=/tmp/csi\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	// godotenv does not override variables that are already set, so make
	// sure the test process starts without them
	t.Setenv("TRAIN_EPOCHS", "")
	os.Unsetenv("TRAIN_EPOCHS")
	t.Setenv("UPLOAD_DIR", "")
	os.Unsetenv("UPLOAD_DIR")

	cfg := Load()
	if cfg.TrainEpochs != 3 {
		t.Errorf("Expected 3 epochs from .env, got %d", cfg.TrainEpochs)
	}
	if cfg.UploadDir != "/tmp/csi" {
		t.Errorf("Expected upload dir from .env, got %s", cfg.UploadDir)
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		get  func() any
		want any
	}{
		{"int", "WIFI_TEST_INT", "twelve", func() any { return getEnvInt("WIFI_TEST_INT", 12) }, 12},
		{"float", "WIFI_TEST_FLOAT", "0,5", func() any { return getEnvFloat("WIFI_TEST_FLOAT", 0.5) }, 0.5},
		{"bool", "WIFI_TEST_BOOL", "maybe", func() any { return getEnvBool("WIFI_TEST_BOOL", true) }, true},
		{"empty string", "WIFI_TEST_STRING", "", func() any { return getEnv("WIFI_TEST_STRING", "fallback") }, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if got := tt.get(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluationSplitIndependentOfTraining(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()
	if cfg.EvalSeed == cfg.RandomSeed {
		t.Fatalf("Expected distinct seeds, both are %d", cfg.RandomSeed)
	}

	rows := make([]models.DatasetRow, 500)
	for i := range rows {
		rows[i].CSI[0] = float64(i)
	}
	_, validation := dataset.TrainValidationSplit(rows, rand.New(rand.NewSource(cfg.RandomSeed)), 0.2)
	_, heldOut := dataset.HoldOut(rows, rand.New(rand.NewSource(cfg.EvalSeed)), 0.2)
	if len(validation) != len(heldOut) {
		t.Fatalf("Expected equal sizes, got %d and %d", len(validation), len(heldOut))
	}
	var identical int
	for i := range validation {
		if validation[i] == heldOut[i] {
			identical++
		}
	}
	if identical > len(heldOut)/2 {
		t.Errorf("Expected the held-out rows to differ from validation, %d of %d positions match", identical, len(heldOut))
	}

	t.Setenv("EVAL_SEED", "42")
	if got := Load().EvalSeed; got != 42 {
		t.Errorf("Expected EVAL_SEED to override, got %d", got)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
