package database

import (
	"strings"
	"testing"
)

func TestAllTables(t *testing.T) {
	tables := AllTables()
	if len(tables) != 3 {
		t.Fatalf("Expected 3 tables, got %d", len(tables))
	}
	for _, name := range []string{"csi_samples", "pose_predictions", "training_epochs"} {
		found := false
		for _, sql := range tables {
			if strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+name+" (") {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a CREATE statement for %s", name)
		}
	}
}
