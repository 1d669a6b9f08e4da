package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/recording"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Recording is a stored session.
type Recording struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	StartTime  int64     `json:"startTime"`
	DurationMs int64     `json:"durationMs"`
	FrameCount int       `json:"frameCount"`
	Hands      []string  `json:"hands"`
	CreatedAt  time.Time `json:"createdAt"`

	// Data is only populated by GetByID.
	Data *recording.Recording `json:"data,omitempty"`
}

// ListOptions filters List results. Zero values match everything.
type ListOptions struct {
	Label      string
	Handedness string
	Limit      int
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create stores a finished recording. An empty ID is replaced by a new UUID.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.Data == nil {
		return errors.New("recording has no data")
	}
	if err := rec.Data.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := recording.EncodeJSON(&buf, rec.Data); err != nil {
		return err
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.StartTime = rec.Data.StartTime
	rec.DurationMs = rec.Data.Duration
	rec.FrameCount = len(rec.Data.Frames)
	rec.CreatedAt = time.Now()

	counts := handCounts(rec.Data)
	rec.Hands = sortedKeys(counts)

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, label, start_time, duration_ms, frame_count, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, rec.StartTime, rec.DurationMs, rec.FrameCount, buf.String(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}

	for _, hand := range rec.Hands {
		_, err := tx.Exec(
			`INSERT INTO recording_hands (recording_id, handedness, frames) VALUES (?, ?, ?)`,
			rec.ID, hand, counts[hand],
		)
		if err != nil {
			return fmt.Errorf("insert recording hands: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a recording with its frames.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	var data string

	err := r.db.QueryRow(
		`SELECT id, label, start_time, duration_ms, frame_count, data, created_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Label, &rec.StartTime, &rec.DurationMs, &rec.FrameCount, &data, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Data, err = recording.DecodeJSON(strings.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", id, err)
	}

	rec.Hands, err = r.hands(id)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (r *RecordingRepository) hands(id string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT handedness FROM recording_hands WHERE recording_id = ? ORDER BY handedness`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hands := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hands = append(hands, h)
	}
	return hands, rows.Err()
}

// List retrieves recording metadata, newest first. Frames are not loaded.
func (r *RecordingRepository) List(opts ListOptions) ([]*Recording, error) {
	query := `SELECT r.id, r.label, r.start_time, r.duration_ms, r.frame_count, r.created_at,
		 COALESCE((SELECT GROUP_CONCAT(handedness) FROM recording_hands h WHERE h.recording_id = r.id), '')
		 FROM recordings r`

	var where []string
	var args []any
	if opts.Label != "" {
		where = append(where, "r.label = ?")
		args = append(args, opts.Label)
	}
	if opts.Handedness != "" {
		where = append(where, "EXISTS (SELECT 1 FROM recording_hands h WHERE h.recording_id = r.id AND h.handedness = ?)")
		args = append(args, opts.Handedness)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.start_time DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recordings := []*Recording{}
	for rows.Next() {
		rec := &Recording{}
		var hands string

		err := rows.Scan(&rec.ID, &rec.Label, &rec.StartTime, &rec.DurationMs, &rec.FrameCount, &rec.CreatedAt, &hands)
		if err != nil {
			return nil, err
		}

		rec.Hands = []string{}
		if hands != "" {
			rec.Hands = strings.Split(hands, ",")
			sort.Strings(rec.Hands)
		}
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

// UpdateLabel changes the label of a recording.
func (r *RecordingRepository) UpdateLabel(id, label string) error {
	result, err := r.db.Exec(`UPDATE recordings SET label = ? WHERE id = ?`, label, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a recording from the database by its ID.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// handCounts counts frames per handedness label.
func handCounts(rec *recording.Recording) map[string]int {
	counts := make(map[string]int)
	for _, f := range rec.Frames {
		seen := make(map[string]bool, len(f.Landmarks.Hands))
		for _, h := range f.Landmarks.Hands {
			if !seen[h.Handedness] {
				seen[h.Handedness] = true
				counts[h.Handedness]++
			}
		}
	}
	return counts
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
