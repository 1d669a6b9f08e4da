package store

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestStore opens a store in a fresh temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "mudra.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDatabaseFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mudra.db")
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist yet")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing after New(): %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNew_Schema(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		kind string
		name string
	}{
		{"table", "recordings"},
		{"table", "recording_hands"},
		{"index", "idx_recordings_start_time"},
		{"index", "idx_recordings_label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var name string
			err := s.DB().QueryRow(
				"SELECT name FROM sqlite_master WHERE type = ? AND name = ?",
				tt.kind, tt.name,
			).Scan(&name)
			if err != nil {
				t.Errorf("%s %q missing after migrations: %v", tt.kind, tt.name, err)
			}
		})
	}
}

func TestNew_ForeignKeysCascade(t *testing.T) {
	s := newTestStore(t)

	var enabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if enabled != 1 {
		t.Fatal("foreign keys should be enabled")
	}

	rec := &Recording{Data: sampleRecording(1000, 3)}
	if err := s.Recordings().Create(rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Recordings().Delete(rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var n int
	if err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM recording_hands WHERE recording_id = ?", rec.ID,
	).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("recording_hands kept %d rows after delete", n)
	}
}

func TestNew_ConnectionPragmas(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		pragma string
		want   int
	}{
		{"foreign_keys", 1},
		{"busy_timeout", 5000},
	}

	for _, tt := range tests {
		var got int
		if err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", tt.pragma, err)
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.pragma, got, tt.want)
		}
	}
	if n := s.DB().Stats().MaxOpenConnections; n != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", n)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "mudra.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("queries should fail after Close()")
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mudra.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &Recording{Label: "wave", Data: sampleRecording(1000, 3)}
	if err := s.Recordings().Create(rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	// Migrations must be safe to run again
	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := s.Recordings().GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID() after reopen error = %v", err)
	}
	if got.Label != "wave" || got.FrameCount != 3 {
		t.Errorf("reopened recording = %+v", got)
	}
}
