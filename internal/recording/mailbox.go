package recording

import (
	"sync/atomic"

	"github.com/ayusman/mudra/internal/detector"
)

// Mailbox holds the latest landmarks. Each Set overwrites the previous
// value; readers always see the most recent one.
type Mailbox struct {
	slot atomic.Pointer[detector.MultiHandLandmarks]
}

// Set stores v, replacing whatever was there. nil means no hand.
func (m *Mailbox) Set(v *detector.MultiHandLandmarks) {
	m.slot.Store(v)
}

// Get returns the current value.
func (m *Mailbox) Get() *detector.MultiHandLandmarks {
	return m.slot.Load()
}
