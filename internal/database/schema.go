package database

// SQL schemas for all ClickHouse tables

const (
	// CSISamplesTableSQL creates the csi_samples table (exported datasets)
	CSISamplesTableSQL = `
		CREATE TABLE IF NOT EXISTS csi_samples (
			dataset_id String,
			row_index UInt32,
			created_at DateTime64(3),
			amplitudes Array(Float64),
			presence UInt8,
			pose UInt8,
			pose_class String
		) ENGINE = MergeTree()
		ORDER BY (dataset_id, row_index)
	`

	// PosePredictionsTableSQL creates the pose_predictions table (inference log)
	PosePredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS pose_predictions (
			timestamp DateTime64(3),
			request_id String,
			source String,
			row_count UInt32,
			human_present Bool,
			pose_class String,
			presence_probability Float64,
			confidence Float64,
			input_hash String,
			signal_rms Float64,
			signal_peak Float64,
			signal_level_db Float64,
			quiet Bool,
			inference_time_ms Float64,
			model_version String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (source, timestamp)
	`

	// TrainingEpochsTableSQL creates the training_epochs table (training history)
	TrainingEpochsTableSQL = `
		CREATE TABLE IF NOT EXISTS training_epochs (
			timestamp DateTime64(3),
			run_id String,
			epoch UInt32,
			train_loss Float64,
			val_loss Float64,
			presence_accuracy Float64,
			pose_accuracy Float64,
			duration_ms Float64
		) ENGINE = MergeTree()
		ORDER BY (run_id, epoch)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		CSISamplesTableSQL,
		PosePredictionsTableSQL,
		TrainingEpochsTableSQL,
	}
}
