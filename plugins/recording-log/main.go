// Package main provides a plugin that appends every recording event to a
// JSON Lines file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event     string          `json:"event"`
	Recording json.RawMessage `json:"recording"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest's config block. A relative path is resolved
// against the plugin directory.
type Config struct {
	Path string `json:"path"`
}

const defaultPath = "recordings.jsonl"

func main() {
	resp := handle(os.Stdin)
	json.NewEncoder(os.Stdout).Encode(resp)
}

func handle(r io.Reader) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}
	if len(req.Recording) == 0 {
		return Response{Error: fmt.Sprintf("event %s has no recording", req.Event)}
	}

	cfg := Config{Path: defaultPath}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return Response{Error: fmt.Sprintf("failed to parse config: %v", err)}
		}
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}

	if err := appendLine(cfg.Path, req.Recording); err != nil {
		return Response{Error: err.Error()}
	}

	data, _ := json.Marshal(map[string]string{"path": cfg.Path})
	return Response{Success: true, Data: data}
}

// appendLine writes line compacted onto its own line at the end of path.
func appendLine(path string, line json.RawMessage) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	compact, err := json.Marshal(line)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(compact, '\n')); err != nil {
		return err
	}
	return f.Close()
}
