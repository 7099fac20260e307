package config

import (
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Configuration
	HTTPPort  string
	UploadDir string

	// File locations
	ModelPath     string
	DatasetPath   string
	LossCurvePath string
	ReportPath    string

	// Dataset generation
	RandomSeed          int64
	EvalSeed            int64 // held-out split of cmd/evaluate
	NumSamples          int
	PresenceProbability float64
	NoiseLevel          float64

	// Training
	TrainEpochs       int
	TrainBatchSize    int
	TrainLearningRate float64
	Workers           int

	// MQTT Configuration
	MQTTEnabled          bool
	MQTTBroker           string
	MQTTClientID         string
	MQTTUsername         string
	MQTTPassword         string
	MQTTTopicInferReq    string
	MQTTTopicInferResult string
	MQTTTopicStatus      string
	MQTTMinIntervalMs    int

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string
}

// evalSeedOffset keeps the evaluation split apart from the training split
// when only RANDOM_SEED is set
const evalSeedOffset = 1

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	seed := int64(getEnvInt("RANDOM_SEED", 42))

	return &Config{
		// HTTP Configuration
		HTTPPort:  getEnv("HTTP_PORT", "5000"),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		// File locations
		ModelPath:     getEnv("MODEL_PATH", "models/pose_lstm.bin"),
		DatasetPath:   getEnv("DATASET_PATH", "dataset.csv"),
		LossCurvePath: getEnv("LOSS_CURVE_PATH", "training_loss.csv"),
		ReportPath:    getEnv("REPORT_PATH", "evaluation_report.json"),

		// Dataset generation
		RandomSeed:          seed,
		EvalSeed:            int64(getEnvInt("EVAL_SEED", int(seed)+evalSeedOffset)),
		NumSamples:          getEnvInt("NUM_SAMPLES", 1000),
		PresenceProbability: getEnvFloat("PRESENCE_PROBABILITY", 0.7),
		NoiseLevel:          getEnvFloat("NOISE_LEVEL", 0.1),

		// Training
		TrainEpochs:       getEnvInt("TRAIN_EPOCHS", 50),
		TrainBatchSize:    getEnvInt("TRAIN_BATCH_SIZE", 32),
		TrainLearningRate: getEnvFloat("TRAIN_LEARNING_RATE", 0.001),
		Workers:           getEnvInt("WORKERS", runtime.NumCPU()),

		// MQTT Configuration
		MQTTEnabled:          getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:           getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:         getEnv("MQTT_CLIENT_ID", "wifi-pose-backend"),
		MQTTUsername:         getEnv("MQTT_USERNAME", ""),
		MQTTPassword:         getEnv("MQTT_PASSWORD", ""),
		MQTTTopicInferReq:    getEnv("MQTT_TOPIC_INFER_REQ", "csi/+/infer"),
		MQTTTopicInferResult: getEnv("MQTT_TOPIC_INFER_RESULT", "pose/{device_id}/result"),
		MQTTTopicStatus:      getEnv("MQTT_TOPIC_STATUS", "pose/server/status"),
		MQTTMinIntervalMs:    getEnvInt("MQTT_MIN_INTERVAL_MS", 0),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "wifi_pose"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
