package dataset

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"wifi-pose-backend/internal/models"
)

func TestBuildPresenceRate(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(42)))
	rows, err := builder.Build(context.Background(), 2000, 0.7)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rows) != 2000 {
		t.Fatalf("Expected 2000 rows, got %d", len(rows))
	}

	var summary = Summarize(rows)
	if math.Abs(summary.PresenceRate-0.7) > 0.05 {
		t.Errorf("Expected presence rate near 0.7, got %v", summary.PresenceRate)
	}
	for pose, freq := range summary.PoseFrequency {
		if math.Abs(freq-0.25) > 0.05 {
			t.Errorf("Expected pose %d frequency near 0.25, got %v", pose, freq)
		}
	}
	for i, row := range rows {
		if !row.Label.Presence && row.Label.Pose != models.PoseSentinel {
			t.Fatalf("row %d: absent row carries pose %v", i, row.Label.Pose)
		}
	}
}

func TestBuildExtremes(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(1)))

	rows, err := builder.Build(context.Background(), 0, 0.5)
	if err != nil || len(rows) != 0 {
		t.Fatalf("Expected empty dataset, got %d rows, err %v", len(rows), err)
	}

	rows, _ = builder.Build(context.Background(), 50, 1)
	for _, row := range rows {
		if !row.Label.Presence {
			t.Fatal("Expected every row present with p=1")
		}
	}
	rows, _ = builder.Build(context.Background(), 50, 0)
	for _, row := range rows {
		if row.Label.Presence {
			t.Fatal("Expected no row present with p=0")
		}
	}
}

func TestBuildInvalidArguments(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(1)))
	if _, err := builder.Build(context.Background(), -1, 0.5); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for negative n, got %v", err)
	}
	if _, err := builder.Build(context.Background(), 10, 1.5); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for p > 1, got %v", err)
	}
}

func TestSetNoiseLevel(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(3)))
	for _, level := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		if err := builder.SetNoiseLevel(level); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for %v, got %v", level, err)
		}
	}

	if err := builder.SetNoiseLevel(0); err != nil {
		t.Fatalf("SetNoiseLevel(0) failed: %v", err)
	}
	stand, err := ParseCondition("stand")
	if err != nil {
		t.Fatalf("ParseCondition failed: %v", err)
	}
	rows, err := builder.BuildStratified([]Condition{stand}, 3, false)
	if err != nil {
		t.Fatalf("BuildStratified failed: %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CSI != rows[0].CSI {
			t.Errorf("Expected identical noiseless rows, row %d differs", i)
		}
	}
}

func TestBuildIsReproducible(t *testing.T) {
	first, _ := NewBuilder(rand.New(rand.NewSource(9))).Build(context.Background(), 20, 0.5)
	second, _ := NewBuilder(rand.New(rand.NewSource(9))).Build(context.Background(), 20, 0.5)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d differs between runs with the same seed", i)
		}
	}
}

func TestStreamCancelled(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out = make(chan models.DatasetRow)
	if err := builder.Stream(ctx, 10, 0.5, out); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBuildStratified(t *testing.T) {
	var builder = NewBuilder(rand.New(rand.NewSource(42)))
	rows, err := builder.BuildStratified(AllConditions(), 10, true)
	if err != nil {
		t.Fatalf("BuildStratified failed: %v", err)
	}
	if len(rows) != 50 {
		t.Fatalf("Expected 50 rows, got %d", len(rows))
	}
	var summary = Summarize(rows)
	if summary.Present != 40 {
		t.Errorf("Expected 40 present rows, got %d", summary.Present)
	}
	for pose, count := range summary.PoseCounts {
		if count != 10 {
			t.Errorf("Expected 10 rows of pose %d, got %d", pose, count)
		}
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition(" No_Human ")
	if err != nil || c.Label.Presence {
		t.Errorf("Expected no_human condition, got %+v, %v", c, err)
	}
	if _, err := ParseCondition("dance"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	rows, _ := NewBuilder(rand.New(rand.NewSource(3))).Build(context.Background(), 100, 0.5)
	train, val := TrainValidationSplit(rows, rand.New(rand.NewSource(4)), 0.2)
	if len(train) != 80 || len(val) != 20 {
		t.Fatalf("Expected 80/20, got %d/%d", len(train), len(val))
	}
	if first, second := Split(rows, rand.New(rand.NewSource(4)), 150); len(first) != 100 || len(second) != 0 {
		t.Errorf("Expected the cut to be clamped, got %d/%d", len(first), len(second))
	}

	// sizes truncate: the training part for training, the test part for holdout
	tests := []struct {
		name        string
		n           int
		split       func([]models.DatasetRow, *rand.Rand, float64) ([]models.DatasetRow, []models.DatasetRow)
		first, last int
	}{
		{"training 101", 101, TrainValidationSplit, 80, 21},
		{"holdout 101", 101, HoldOut, 81, 20},
		{"training 1", 1, TrainValidationSplit, 0, 1},
		{"holdout 1", 1, HoldOut, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			more, _ := NewBuilder(rand.New(rand.NewSource(3))).Build(context.Background(), tt.n, 0.5)
			first, last := tt.split(more, rand.New(rand.NewSource(4)), 0.2)
			if len(first) != tt.first || len(last) != tt.last {
				t.Errorf("Expected %d/%d, got %d/%d", tt.first, tt.last, len(first), len(last))
			}
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows, _ := NewBuilder(rand.New(rand.NewSource(5))).Build(context.Background(), 25, 0.6)
	var path = filepath.Join(t.TempDir(), "data", "dataset.csv")
	if err := SaveCSV(path, rows); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}
	loaded, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(loaded) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(loaded))
	}
	for i := range rows {
		if rows[i] != loaded[i] {
			t.Fatalf("row %d changed after round trip", i)
		}
	}
}

func TestReadCSVRejectsBadLabels(t *testing.T) {
	var buf bytes.Buffer
	WriteCSV(&buf, nil)
	buf.WriteString(strings.Repeat("0.1,", models.NumSubcarriers) + "1,7\n")
	if _, err := ReadCSV(&buf); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestReadFeatureMatrix(t *testing.T) {
	var row = strings.TrimSuffix(strings.Repeat("0.5,", models.NumSubcarriers), ",")
	tests := []struct {
		name    string
		input   string
		rows    int
		wantErr bool
	}{
		{"header and one row", strings.Join(Header()[:models.NumSubcarriers], ",") + "\n" + row + "\n", 1, false},
		{"no header", row + "\n" + row + "\n", 2, false},
		{"dataset with labels", row + ",1,2\n", 1, false},
		{"short row", "1,2,3\n", 0, true},
		{"non numeric", strings.Replace(row, "0.5", "abc", 1) + "\n" + strings.Replace(row, "0.5", "abc", 1) + "\n", 0, true},
		{"header only", strings.Join(Header(), ",") + "\n", 0, true},
		{"empty", "", 0, true},
		{"nan", strings.Replace(row, "0.5", "NaN", 1) + "\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matrix, err := ReadFeatureMatrix(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFeatureMatrix failed: %v", err)
			}
			if len(matrix) != tt.rows {
				t.Errorf("Expected %d rows, got %d", tt.rows, len(matrix))
			}
			for _, r := range matrix {
				if len(r) != models.NumSubcarriers {
					t.Errorf("Expected %d columns, got %d", models.NumSubcarriers, len(r))
				}
			}
		})
	}
}
