// Package recording turns the live landmark stream into time-stamped
// recordings.
//
// A Session samples the most recent detection result at a fixed cadence
// while recording, and on stop emits a Recording: the frames that had at
// least one hand, the wall-clock duration and the epoch start time.
package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrInvalidRecording is returned by Validate.
var ErrInvalidRecording = errors.New("invalid recording")

// Frame is one sample of a recording.
type Frame struct {
	// Timestamp is milliseconds since the recording started.
	Timestamp int64                       `json:"timestamp" msgpack:"timestamp"`
	Landmarks detector.MultiHandLandmarks `json:"landmarks" msgpack:"landmarks"`
}

// Recording is a finished capture. It is never modified after it is emitted.
//
// Frames are not evenly spaced: ticks without a visible hand produce no
// frame, so players must honor the timestamp gaps.
type Recording struct {
	Frames []Frame `json:"frames" msgpack:"frames"`
	// Duration is the wall-clock span from start to stop in milliseconds.
	Duration int64 `json:"duration" msgpack:"duration"`
	// StartTime is the epoch time in milliseconds the session started.
	StartTime int64 `json:"startTime" msgpack:"startTime"`
}

// Validate checks that frames are ordered, within [0, Duration] and each
// carry between one and two hands.
func (r *Recording) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil recording", ErrInvalidRecording)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidRecording, r.Duration)
	}

	var prev int64
	for i, f := range r.Frames {
		if f.Timestamp < 0 || f.Timestamp > r.Duration {
			return fmt.Errorf("%w: frame %d timestamp %d outside [0, %d]", ErrInvalidRecording, i, f.Timestamp, r.Duration)
		}
		if f.Timestamp < prev {
			return fmt.Errorf("%w: frame %d timestamp %d before %d", ErrInvalidRecording, i, f.Timestamp, prev)
		}
		if n := len(f.Landmarks.Hands); n == 0 || n > detector.MaxHands {
			return fmt.Errorf("%w: frame %d has %d hands", ErrInvalidRecording, i, n)
		}
		prev = f.Timestamp
	}
	return nil
}

// Gaps returns the milliseconds between consecutive frames.
func (r *Recording) Gaps() []int64 {
	if len(r.Frames) < 2 {
		return nil
	}

	gaps := make([]int64, len(r.Frames)-1)
	for i := 1; i < len(r.Frames); i++ {
		gaps[i-1] = r.Frames[i].Timestamp - r.Frames[i-1].Timestamp
	}
	return gaps
}

// EncodeJSON writes r as JSON.
func EncodeJSON(w io.Writer, r *Recording) error {
	if err := json.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return nil
}

// DecodeJSON reads a JSON recording and validates it.
func DecodeJSON(rd io.Reader) (*Recording, error) {
	var r Recording
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeMsgpack writes r as msgpack.
func EncodeMsgpack(w io.Writer, r *Recording) error {
	if err := msgpack.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return nil
}

// DecodeMsgpack reads a msgpack recording and validates it.
func DecodeMsgpack(rd io.Reader) (*Recording, error) {
	var r Recording
	if err := msgpack.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
