package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"wifi-pose-backend/internal/models"
	"wifi-pose-backend/internal/trainer"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	if err := db.InitSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveDatasetRows exports a generated dataset in one batch insert
func (db *ClickHouseDB) SaveDatasetRows(ctx context.Context, datasetID string, rows []models.DatasetRow) error {
	batch, err := db.conn.PrepareBatch(ctx, `
		INSERT INTO csi_samples (dataset_id, row_index, created_at, amplitudes, presence, pose, pose_class)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare dataset batch: %w", err)
	}

	now := time.Now()
	for i, row := range rows {
		poseClass := ""
		if row.Label.PoseIsMeaningful() {
			poseClass = row.Label.Pose.String()
		}
		err := batch.Append(
			datasetID,
			uint32(i),
			now,
			row.CSI[:],
			uint8(row.Label.PresenceValue()),
			uint8(row.Label.Pose),
			poseClass,
		)
		if err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append dataset row %d: %w", i, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert dataset rows: %w", err)
	}

	log.Printf("Saved %d dataset rows to ClickHouse: dataset=%s", len(rows), datasetID)
	return nil
}

// SavePrediction saves one entry of the inference log
func (db *ClickHouseDB) SavePrediction(ctx context.Context, record *models.PredictionRecord) error {
	query := `
		INSERT INTO pose_predictions (timestamp, request_id, source, row_count, human_present, pose_class,
			presence_probability, confidence, input_hash, signal_rms, signal_peak, signal_level_db, quiet,
			inference_time_ms, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		record.Timestamp,
		record.RequestID,
		record.Source,
		uint32(record.Rows),
		record.HumanPresent,
		record.PoseClass,
		record.PresenceProbability,
		record.Confidence,
		record.InputHash,
		record.SignalRMS,
		record.SignalPeak,
		record.SignalLevelDB,
		record.Quiet,
		record.InferenceTimeMs,
		record.ModelVersion,
	)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// RecentPredictions returns the latest inference log entries, newest first
func (db *ClickHouseDB) RecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT timestamp, request_id, source, row_count, human_present, pose_class,
			presence_probability, confidence, input_hash, signal_rms, signal_peak, signal_level_db, quiet,
			inference_time_ms, model_version
		FROM pose_predictions
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var r models.PredictionRecord
		var rowCount uint32
		if err := rows.Scan(
			&r.Timestamp,
			&r.RequestID,
			&r.Source,
			&rowCount,
			&r.HumanPresent,
			&r.PoseClass,
			&r.PresenceProbability,
			&r.Confidence,
			&r.InputHash,
			&r.SignalRMS,
			&r.SignalPeak,
			&r.SignalLevelDB,
			&r.Quiet,
			&r.InferenceTimeMs,
			&r.ModelVersion,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		r.Rows = int(rowCount)
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveTrainingEpoch records the statistics of one training epoch
func (db *ClickHouseDB) SaveTrainingEpoch(ctx context.Context, stats trainer.EpochStats) error {
	query := `
		INSERT INTO training_epochs (timestamp, run_id, epoch, train_loss, val_loss,
			presence_accuracy, pose_accuracy, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		time.Now(),
		stats.RunID,
		uint32(stats.Epoch),
		stats.TrainLoss,
		stats.ValLoss,
		stats.PresenceAccuracy,
		stats.PoseAccuracy,
		float64(stats.Duration.Microseconds())/1000,
	)

	if err != nil {
		return fmt.Errorf("failed to insert training epoch: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
