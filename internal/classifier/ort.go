package classifier

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ayusman/mudra/internal/features"
)

// OrtConfig locates the ONNX Runtime library and the sign model.
type OrtConfig struct {
	// LibraryPath is the onnxruntime shared library. Empty keeps the
	// platform default search.
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	// Classes is the model output width, normally the label map size.
	Classes int
}

var ortEnv struct {
	mu   sync.Mutex
	refs int
}

// OrtInferencer runs the sign model in ONNX Runtime. One session with
// preallocated tensors is reused; calls are serialized.
type OrtInferencer struct {
	mu      sync.Mutex
	cfg     OrtConfig
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewOrtInferencer initializes the runtime environment (once per process)
// and loads the model.
func NewOrtInferencer(cfg OrtConfig) (*OrtInferencer, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("onnx output needs a positive class count, got %d", cfg.Classes)
	}
	if cfg.InputName == "" {
		cfg.InputName = "input"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output"
	}

	if err := acquireEnv(cfg.LibraryPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, features.Len))
	if err != nil {
		releaseEnv()
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Classes)))
	if err != nil {
		input.Destroy()
		releaseEnv()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		output.Destroy()
		input.Destroy()
		releaseEnv()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &OrtInferencer{
		cfg:     cfg,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Infer copies input into the session tensor, runs the model and returns a
// copy of the output. There is no cancellation once a run has started.
func (o *OrtInferencer) Infer(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, ErrNotInitialized
	}

	dst := o.input.GetData()
	n := copy(dst, input)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}

	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	out := o.output.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

// Close releases the session and tensors.
func (o *OrtInferencer) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}

	err := o.session.Destroy()
	o.input.Destroy()
	o.output.Destroy()
	o.session = nil
	o.input = nil
	o.output = nil
	releaseEnv()
	return err
}

func acquireEnv(libPath string) error {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()
	if ortEnv.refs == 0 && !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	ortEnv.refs++
	return nil
}

func releaseEnv() {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()
	ortEnv.refs--
	if ortEnv.refs <= 0 {
		ortEnv.refs = 0
		if ort.IsInitialized() {
			_ = ort.DestroyEnvironment()
		}
	}
}
