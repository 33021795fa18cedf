// Package assets checks that the files the recognition pipeline needs are
// present before it is started.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default file names inside an asset directory.
const (
	ModelFile      = "sign_model.onnx"
	LandmarkerFile = "hand_landmarker.task"
	LabelMapFile   = "label_map.json"
	ScalerFile     = "scaler_params.json"
	DictionaryFile = "malayalam_words.txt"
)

// Set names every required asset.
type Set struct {
	Model      string `yaml:"model"`
	Landmarker string `yaml:"landmarker"`
	LabelMap   string `yaml:"label_map"`
	Scaler     string `yaml:"scaler"`
	Dictionary string `yaml:"dictionary"`
}

// InDir returns the default Set rooted at dir.
func InDir(dir string) Set {
	return Set{
		Model:      filepath.Join(dir, ModelFile),
		Landmarker: filepath.Join(dir, LandmarkerFile),
		LabelMap:   filepath.Join(dir, LabelMapFile),
		Scaler:     filepath.Join(dir, ScalerFile),
		Dictionary: filepath.Join(dir, DictionaryFile),
	}
}

// MissingFile describes one asset that could not be opened.
type MissingFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Err  string `json:"error"`
}

// MissingAssetsError aggregates every asset that failed validation.
type MissingAssetsError struct {
	Files []MissingFile
}

func (e *MissingAssetsError) Error() string {
	parts := make([]string, len(e.Files))
	for i, f := range e.Files {
		parts[i] = fmt.Sprintf("%s (%s)", f.Name, f.Path)
	}
	return "missing assets: " + strings.Join(parts, ", ")
}

// Validate opens each asset in s and reports every failure at once.
// An empty path counts as missing.
func Validate(s Set) error {
	var missing []MissingFile
	for _, a := range []struct{ name, path string }{
		{"model", s.Model},
		{"landmarker", s.Landmarker},
		{"label map", s.LabelMap},
		{"scaler", s.Scaler},
		{"dictionary", s.Dictionary},
	} {
		if err := checkFile(a.path); err != nil {
			missing = append(missing, MissingFile{Name: a.name, Path: a.path, Err: err.Error()})
		}
	}
	if len(missing) > 0 {
		return &MissingAssetsError{Files: missing}
	}
	return nil
}

func checkFile(path string) error {
	if path == "" {
		return fmt.Errorf("no path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	return nil
}
