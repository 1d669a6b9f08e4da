package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func oneHand() detector.MultiHandLandmarks {
	return detector.MultiHandLandmarks{Hands: []detector.Hand{detector.ThumbsUpHand()}}
}

func TestRecording_Validate(t *testing.T) {
	tooMany := detector.MultiHandLandmarks{Hands: []detector.Hand{
		detector.ThumbsUpHand(), detector.OpenPalmHand(), detector.ThumbsUpHand(),
	}}

	tests := []struct {
		name    string
		rec     *Recording
		wantErr bool
	}{
		{name: "nil", rec: nil, wantErr: true},
		{name: "empty", rec: &Recording{Duration: 3000, StartTime: 1}},
		{
			name: "valid",
			rec: &Recording{Duration: 100, Frames: []Frame{
				{Timestamp: 0, Landmarks: oneHand()},
				{Timestamp: 33, Landmarks: oneHand()},
				{Timestamp: 33, Landmarks: oneHand()},
				{Timestamp: 100, Landmarks: oneHand()},
			}},
		},
		{
			name:    "negative duration",
			rec:     &Recording{Duration: -1},
			wantErr: true,
		},
		{
			name:    "timestamp past duration",
			rec:     &Recording{Duration: 50, Frames: []Frame{{Timestamp: 51, Landmarks: oneHand()}}},
			wantErr: true,
		},
		{
			name:    "negative timestamp",
			rec:     &Recording{Duration: 50, Frames: []Frame{{Timestamp: -1, Landmarks: oneHand()}}},
			wantErr: true,
		},
		{
			name: "out of order",
			rec: &Recording{Duration: 100, Frames: []Frame{
				{Timestamp: 66, Landmarks: oneHand()},
				{Timestamp: 33, Landmarks: oneHand()},
			}},
			wantErr: true,
		},
		{
			name:    "frame without hands",
			rec:     &Recording{Duration: 100, Frames: []Frame{{Timestamp: 10}}},
			wantErr: true,
		},
		{
			name:    "more than two hands",
			rec:     &Recording{Duration: 100, Frames: []Frame{{Timestamp: 10, Landmarks: tooMany}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRecording) {
				t.Errorf("Validate() error = %v, want ErrInvalidRecording", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestRecording_Gaps(t *testing.T) {
	rec := &Recording{Duration: 200, Frames: []Frame{
		{Timestamp: 0, Landmarks: oneHand()},
		{Timestamp: 33, Landmarks: oneHand()},
		{Timestamp: 132, Landmarks: oneHand()},
	}}

	gaps := rec.Gaps()
	if len(gaps) != 2 || gaps[0] != 33 || gaps[1] != 99 {
		t.Errorf("Gaps() = %v, want [33 99]", gaps)
	}

	if (&Recording{}).Gaps() != nil {
		t.Error("Gaps() of an empty recording should be nil")
	}
}

func TestEncodeJSON(t *testing.T) {
	t.Run("field names", func(t *testing.T) {
		rec := &Recording{
			Duration:  3012,
			StartTime: 1_700_000_000_000,
			Frames:    []Frame{{Timestamp: 33, Landmarks: oneHand()}},
		}

		var buf bytes.Buffer
		if err := EncodeJSON(&buf, rec); err != nil {
			t.Fatalf("EncodeJSON() error = %v", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		for _, key := range []string{"frames", "duration", "startTime"} {
			if _, ok := raw[key]; !ok {
				t.Errorf("missing key %q in %s", key, buf.String())
			}
		}

		frame := raw["frames"].([]any)[0].(map[string]any)
		hands := frame["landmarks"].(map[string]any)["hands"].([]any)
		hand := hands[0].(map[string]any)
		if hand["handedness"] != "Right" {
			t.Errorf("handedness = %v, want Right", hand["handedness"])
		}
		point := hand["landmarks"].([]any)[0].(map[string]any)
		for _, key := range []string{"x", "y", "z"} {
			if _, ok := point[key]; !ok {
				t.Errorf("landmark missing %q", key)
			}
		}
	})

	t.Run("zero frames encode as empty list", func(t *testing.T) {
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, &Recording{Frames: []Frame{}, Duration: 500}); err != nil {
			t.Fatalf("EncodeJSON() error = %v", err)
		}
		if !strings.Contains(buf.String(), `"frames":[]`) {
			t.Errorf("expected empty frames list, got %s", buf.String())
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes a recording", func(t *testing.T) {
		input := `{"frames":[{"timestamp":0,"landmarks":{"hands":[{"landmarks":[{"x":0.5,"y":0.8,"z":0}],"handedness":"Left"}]}}],"duration":40,"startTime":123}`

		rec, err := DecodeJSON(strings.NewReader(input))
		if err != nil {
			t.Fatalf("DecodeJSON() error = %v", err)
		}
		if rec.StartTime != 123 || rec.Duration != 40 || len(rec.Frames) != 1 {
			t.Errorf("unexpected recording: %+v", rec)
		}
		if rec.Frames[0].Landmarks.Hands[0].Landmarks[0].Y != 0.8 {
			t.Errorf("landmark not decoded: %+v", rec.Frames[0])
		}
	})

	t.Run("rejects invalid recordings", func(t *testing.T) {
		input := `{"frames":[{"timestamp":90,"landmarks":{"hands":[]}}],"duration":40,"startTime":1}`
		if _, err := DecodeJSON(strings.NewReader(input)); !errors.Is(err, ErrInvalidRecording) {
			t.Errorf("expected ErrInvalidRecording, got %v", err)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		if _, err := DecodeJSON(strings.NewReader("{")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMsgpackCodec(t *testing.T) {
	rec := &Recording{
		Duration:  100,
		StartTime: 42,
		Frames: []Frame{
			{Timestamp: 10, Landmarks: oneHand()},
			{Timestamp: 43, Landmarks: detector.MultiHandLandmarks{Hands: []detector.Hand{
				detector.ThumbsUpHand(), detector.OpenPalmHand(),
			}}},
		},
	}

	var buf bytes.Buffer
	if err := EncodeMsgpack(&buf, rec); err != nil {
		t.Fatalf("EncodeMsgpack() error = %v", err)
	}

	got, err := DecodeMsgpack(&buf)
	if err != nil {
		t.Fatalf("DecodeMsgpack() error = %v", err)
	}
	if got.StartTime != 42 || got.Duration != 100 || len(got.Frames) != 2 {
		t.Fatalf("unexpected recording: %+v", got)
	}
	if got.Frames[1].Landmarks.Hands[1].Handedness != "Left" {
		t.Errorf("handedness = %s, want Left", got.Frames[1].Landmarks.Hands[1].Handedness)
	}
	if got.Frames[0].Landmarks.Hands[0].Landmarks[detector.ThumbTip] != detector.ThumbsUpHand().Landmarks[detector.ThumbTip] {
		t.Error("landmark values changed through msgpack")
	}

	if _, err := DecodeMsgpack(bytes.NewReader([]byte{0xc1})); err == nil {
		t.Error("expected error for malformed msgpack")
	}
}
