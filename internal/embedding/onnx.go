//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/docsift/pkg/utils"
)

// ONNXOptions configures a local sentence-embedding model.
type ONNXOptions struct {
	ModelPath string
	// Dimensions is the width of the model's pooled output.
	Dimensions int
	// MaxTokens is the fixed sequence length fed to the model (default 256).
	MaxTokens int
	// OutputName is the pooled output tensor (default "output").
	OutputName string
}

var onnxInputNames = []string{"input_ids", "attention_mask", "token_type_ids"}

// ONNXEmbedder runs a BERT-style model through ONNX Runtime. Requires cgo and the
// onnxruntime shared library.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	inputs    []*ort.Tensor[int64] // ordered as onnxInputNames
	output    *ort.Tensor[float32]
	opts      ONNXOptions
	destroyed bool
}

// NewONNXEmbedder loads the model and allocates the tensors reused by every Embed call.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("onnx: dimensions must be positive, got %d", opts.Dimensions)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	if opts.OutputName == "" {
		opts.OutputName = "output"
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx model %q: %w", opts.ModelPath, err)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{opts: opts}
	shape := ort.NewShape(1, int64(opts.MaxTokens))
	for _, name := range onnxInputNames {
		t, err := ort.NewEmptyTensor[int64](shape)
		if err != nil {
			e.release()
			return nil, fmt.Errorf("failed to allocate %s tensor: %w", name, err)
		}
		e.inputs = append(e.inputs, t)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Dimensions)))
	if err != nil {
		e.release()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}
	e.output = out

	inputs := make([]ort.ArbitraryTensor, len(e.inputs))
	for i, t := range e.inputs {
		inputs[i] = t
	}
	session, err := ort.NewAdvancedSession(opts.ModelPath, onnxInputNames, []string{opts.OutputName},
		inputs, []ort.ArbitraryTensor{e.output}, nil)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	e.session = session
	return e, nil
}

// Embed encodes text and runs one inference. Calls are serialized over the shared tensors.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := encodeForModel(text, e.opts.MaxTokens)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, fmt.Errorf("onnx embedder is closed")
	}
	copy(e.inputs[0].GetData(), in.ids)
	copy(e.inputs[1].GetData(), in.mask)
	copy(e.inputs[2].GetData(), in.types)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	vec := make([]float32, e.opts.Dimensions)
	copy(vec, e.output.GetData())
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

func (e *ONNXEmbedder) Dimensions() int {
	return e.opts.Dimensions
}

// Close destroys the session and its tensors. Later Embed calls fail.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	return e.release()
}

func (e *ONNXEmbedder) release() error {
	var first error
	if e.session != nil {
		first = e.session.Destroy()
		e.session = nil
	}
	for _, t := range e.inputs {
		_ = t.Destroy()
	}
	e.inputs = nil
	if e.output != nil {
		_ = e.output.Destroy()
		e.output = nil
	}
	return first
}
