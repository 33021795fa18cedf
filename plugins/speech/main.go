// Package main provides a text-to-speech plugin. It shells out to say on
// macOS and espeak-ng (or espeak) elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// SpeakParams tunes the voice.
type SpeakParams struct {
	Voice string `json:"voice"`
	// Rate is words per minute; 0 keeps the engine default.
	Rate int `json:"rate"`
}

var errNoEngine = errors.New("no speech engine found (install espeak-ng)")

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(nil, fmt.Errorf("failed to decode request: %w", err))
		return
	}

	if req.Action != plugin.ActionSpeak {
		writeResponse(nil, fmt.Errorf("unknown action: %s", req.Action))
		return
	}

	engine, err := speak(req)
	writeResponse(map[string]string{"engine": engine}, err)
}

func speak(req plugin.Request) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}

	var p SpeakParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return "", fmt.Errorf("failed to parse params: %w", err)
		}
	}

	name, args, err := command(req.Language, p)
	if err != nil {
		return "", err
	}
	args = append(args, text)

	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return name, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return name, nil
}

// command picks the speech engine and its flags for the platform.
func command(language string, p SpeakParams) (string, []string, error) {
	if runtime.GOOS == "darwin" {
		var args []string
		if p.Voice != "" {
			args = append(args, "-v", p.Voice)
		}
		if p.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(p.Rate))
		}
		return "say", args, nil
	}

	for _, name := range []string{"espeak-ng", "espeak"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		var args []string
		voice := p.Voice
		if voice == "" {
			voice = language
		}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if p.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(p.Rate))
		}
		return name, args, nil
	}
	return "", nil, errNoEngine
}

func writeResponse(data any, err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if data != nil {
		if raw, mErr := json.Marshal(data); mErr == nil {
			resp.Data = raw
		}
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
