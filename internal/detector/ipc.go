package detector

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// maxMessageSize bounds a single framed message (a 1080p JPEG is well below this).
const maxMessageSize = 32 << 20

// inferenceRequest is sent to the Python service for every frame.
type inferenceRequest struct {
	TimestampMs int64  `msgpack:"timestamp_ms"`
	Width       int    `msgpack:"width"`
	Height      int    `msgpack:"height"`
	Image       []byte `msgpack:"image"` // JPEG
}

// inferenceResponse is the service reply for one frame.
type inferenceResponse struct {
	Hands []wireHand `msgpack:"hands"`
	Error string     `msgpack:"error,omitempty"`
}

type wireHand struct {
	Landmarks  []Landmark `msgpack:"landmarks"`
	Handedness []Category `msgpack:"handedness"`
}

// readyMessage is the first message the service writes once the model is loaded.
type readyMessage struct {
	Ready bool   `msgpack:"ready"`
	Model string `msgpack:"model,omitempty"`
	Error string `msgpack:"error,omitempty"`
}

func (r *inferenceResponse) toResult() *Result {
	res := &Result{
		Landmarks:  make([][]Landmark, len(r.Hands)),
		Handedness: make([][]Category, len(r.Hands)),
	}
	for i, h := range r.Hands {
		res.Landmarks[i] = h.Landmarks
		res.Handedness[i] = h.Handedness
	}
	return res
}

// writeMessage writes v as a length-prefixed msgpack message
// (4 bytes big-endian length followed by the payload).
func writeMessage(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed msgpack message into v.
func readMessage(r io.Reader, v any) error {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return fmt.Errorf("read length: %w", err)
	}

	n := binary.BigEndian.Uint32(length)
	if n > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}
