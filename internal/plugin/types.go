// Package plugin discovers and runs output plugins: external executables that
// speak or type recognized text. Requests go in on stdin as JSON and a single
// JSON response comes back on stdout.
package plugin

import "encoding/json"

// Actions understood by the bundled plugins.
const (
	ActionSpeak = "speak"
	ActionType  = "type"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action   string          `json:"action"`
	Text     string          `json:"text"`
	Language string          `json:"language,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
