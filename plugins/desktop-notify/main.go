// Package main provides a plugin that shows a desktop notification when a
// recording is saved. It uses AppleScript on macOS and notify-send on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event     string          `json:"event"`
	Recording *Recording      `json:"recording"`
	Config    json.RawMessage `json:"config"`
}

// Recording is the subset of the event this plugin reads.
type Recording struct {
	RecordingID string   `json:"recording_id"`
	Label       string   `json:"label"`
	DurationMs  int64    `json:"duration_ms"`
	FrameCount  int      `json:"frame_count"`
	Hands       []string `json:"hands"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the manifest's config block.
type Config struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	if req.Recording == nil {
		writeResponse(fmt.Errorf("event %s has no recording", req.Event))
		return
	}

	cfg := Config{Title: "mudra"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("failed to parse config: %w", err))
			return
		}
	}

	writeResponse(notify(cfg, message(req.Recording)))
}

// message summarizes a recording in one line.
func message(rec *Recording) string {
	var b strings.Builder
	if rec.Label != "" {
		fmt.Fprintf(&b, "%s: ", rec.Label)
	}
	fmt.Fprintf(&b, "%d frames in %.1fs", rec.FrameCount, float64(rec.DurationMs)/1000)
	if len(rec.Hands) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(rec.Hands, ", "))
	}
	return b.String()
}

func notify(cfg Config, msg string) error {
	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", notificationScript(cfg, msg))
	case "linux":
		return run("notify-send", cfg.Title, msg)
	}
	return fmt.Errorf("notifications are not supported on %s", runtime.GOOS)
}

// notificationScript builds the AppleScript for a notification.
func notificationScript(cfg Config, msg string) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(msg), escape(cfg.Title))
	if cfg.Sound {
		script += ` sound name "Glass"`
	}
	return script
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return nil
}

// writeResponse writes a success response, or an error response if err is set.
func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
