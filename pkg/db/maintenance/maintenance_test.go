package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"simmotion/pkg/db"
	"simmotion/pkg/store"
)

func TestMaintenance(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "maint_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	open, err := s.StartSession(ctx, "chair", "xplane")
	if err != nil {
		t.Fatal(err)
	}

	tablePath := filepath.Join(tempDir, "chair_DtoP.csv")
	if err := os.WriteFile(tablePath, []byte("# weights,20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, s, d, tablePath); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sess, err := s.GetSession(ctx, open.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.EndedAt == nil {
		t.Error("dangling session should have been closed")
	}
	if _, ok := s.GetState(ctx, loadTableStateKey); !ok {
		t.Error("load table mtime not recorded")
	}
}

func TestCheckLoadTable(t *testing.T) {
	ctx := context.Background()
	d, err := db.Init(filepath.Join(t.TempDir(), "check.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	s := store.NewSQLiteStore(d)

	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		path  string
		touch bool
		want  bool
	}{
		{"FirstSeen", path, false, true},
		{"Unchanged", path, false, false},
		{"Touched", path, true, true},
		{"Missing", filepath.Join(t.TempDir(), "absent.csv"), false, false},
		{"Empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.touch {
				later := time.Now().Add(time.Hour)
				if err := os.Chtimes(tt.path, later, later); err != nil {
					t.Fatal(err)
				}
			}
			got, err := checkLoadTable(ctx, s, tt.path)
			if err != nil {
				t.Fatalf("checkLoadTable failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("checkLoadTable() = %v, want %v", got, tt.want)
			}
		})
	}
}
