package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"wifi-pose-backend/internal/models"
)

// Header returns subcarrier_0..subcarrier_29, presence, pose
func Header() []string {
	var header = make([]string, 0, models.NumSubcarriers+2)
	for i := 0; i < models.NumSubcarriers; i++ {
		header = append(header, fmt.Sprintf("subcarrier_%d", i))
	}
	return append(header, "presence", "pose")
}

func WriteCSV(w io.Writer, rows []models.DatasetRow) error {
	var writer = csv.NewWriter(w)
	if err := writer.Write(Header()); err != nil {
		return err
	}
	var record = make([]string, models.NumSubcarriers+2)
	for _, row := range rows {
		for i, v := range row.CSI {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[models.NumSubcarriers] = strconv.Itoa(int(row.Label.PresenceValue()))
		record[models.NumSubcarriers+1] = strconv.Itoa(int(row.Label.Pose))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes rows to path, creating the parent directory if needed
func SaveCSV(path string, rows []models.DatasetRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return f.Close()
}

// ReadCSV parses a dataset written by WriteCSV. The first record is the header.
func ReadCSV(r io.Reader) ([]models.DatasetRow, error) {
	var reader = csv.NewReader(r)
	reader.FieldsPerRecord = models.NumSubcarriers + 2

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty dataset", models.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	var rows []models.DatasetRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrInvalidInput, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func LoadCSV(path string) ([]models.DatasetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(record []string) (models.DatasetRow, error) {
	var row models.DatasetRow
	values, err := parseFloats(record[:models.NumSubcarriers])
	if err != nil {
		return row, err
	}
	copy(row.CSI[:], values)

	presence, err := strconv.Atoi(record[models.NumSubcarriers])
	if err != nil || (presence != 0 && presence != 1) {
		return row, fmt.Errorf("presence must be 0 or 1, got %q", record[models.NumSubcarriers])
	}
	pose, err := strconv.Atoi(record[models.NumSubcarriers+1])
	if err != nil || !models.Pose(pose).Valid() {
		return row, fmt.Errorf("pose must be 0..%d, got %q", models.NumPoses-1, record[models.NumSubcarriers+1])
	}

	row.Label.Presence = presence == 1
	row.Label.Pose = models.Pose(pose)
	if !row.Label.Presence {
		row.Label.Pose = models.PoseSentinel
	}
	return row, nil
}

// ReadFeatureMatrix parses an uploaded CSV into rows of 30 amplitudes.
// A first record that is not fully numeric is treated as a header.
// Columns after the 30th (for example dataset labels) are ignored.
func ReadFeatureMatrix(r io.Reader) ([][]float64, error) {
	var reader = csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if len(records) > 0 && !isNumericRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no data rows", models.ErrInvalidInput)
	}

	var matrix = make([][]float64, 0, len(records))
	for i, record := range records {
		if len(record) < models.NumSubcarriers {
			return nil, fmt.Errorf("%w: row %d has %d columns, need %d", models.ErrInvalidInput, i, len(record), models.NumSubcarriers)
		}
		values, err := parseFloats(record[:models.NumSubcarriers])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrInvalidInput, i, err)
		}
		matrix = append(matrix, values)
	}
	return matrix, nil
}

func isNumericRecord(record []string) bool {
	for _, cell := range record {
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
	}
	return true
}

func parseFloats(cells []string) ([]float64, error) {
	var values = make([]float64, len(cells))
	for i, cell := range cells {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %q is not a number", i, cell)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("column %d: %q is not finite", i, cell)
		}
		values[i] = v
	}
	return values, nil
}
