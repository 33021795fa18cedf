// Package main provides a keyboard plugin that types recognized text into
// the focused application. It uses AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// TypeParams tunes the type action.
type TypeParams struct {
	// Enter presses return after the text.
	Enter bool `json:"enter"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	if req.Action != plugin.ActionType {
		writeResponse(fmt.Errorf("unknown action: %s", req.Action))
		return
	}
	writeResponse(handleType(req))
}

func handleType(req plugin.Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("text is required")
	}

	var p TypeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return fmt.Errorf("failed to parse params: %w", err)
		}
	}

	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", buildTypeScript(req.Text, p.Enter))
	case "linux":
		if err := run("xdotool", "type", "--clearmodifiers", "--", req.Text); err != nil {
			return err
		}
		if p.Enter {
			return run("xdotool", "key", "Return")
		}
		return nil
	default:
		return fmt.Errorf("typing is not supported on %s", runtime.GOOS)
	}
}

// buildTypeScript generates an AppleScript that types text.
func buildTypeScript(text string, enter bool) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
	script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escaped)
	if enter {
		script += "\n" + `tell application "System Events" to key code 36`
	}
	return script
}

func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
