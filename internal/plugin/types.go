// Package plugin runs external executables in response to recording events.
//
// A plugin lives in its own directory under the plugin root with a
// plugin.json manifest. For each event it subscribes to, the executable is
// started with a JSON Request on stdin and must write a JSON Response to
// stdout.
package plugin

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/mudra/internal/notify"
)

// ManifestFile is the manifest name inside each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin subscribes to event.
// A manifest without events handles every event.
func (m Manifest) Handles(event string) bool {
	return len(m.Events) == 0 || slices.Contains(m.Events, event)
}

// Request is written to the plugin's stdin.
type Request struct {
	Event     string                          `json:"event"`
	Recording *notify.RecordingCompletedEvent `json:"recording,omitempty"`
	Config    json.RawMessage                 `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
