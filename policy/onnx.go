package policy

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelOutput is returned when the model scores no legal intent.
var ErrModelOutput = errors.New("model produced no usable score")

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// OnnxPolicy scores the eight intents with an ONNX model taking "input"
// [1, Channels, Rows, Cols] and producing "policy" [1, ActionSize], and plays
// the highest-scoring legal intent. Safe for concurrent use.
type OnnxPolicy struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	rows    int64
	cols    int64
}

// NewOnnxPolicy loads modelPath for boards of the given settings.
// The runtime library is taken from ORT_SHARED_LIBRARY_PATH, or
// libonnxruntime.so in the working directory.
func NewOnnxPolicy(modelPath string, settings game.Settings) (*OnnxPolicy, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("stat model: %w", err)
	}
	if err := initRuntime(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{"input"}, []string{"policy"}, options)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	settings = settings.Normalize()
	return &OnnxPolicy{
		session: session,
		rows:    int64(settings.Rows),
		cols:    int64(settings.Cols),
	}, nil
}

func initRuntime() error {
	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else if cwd, err := os.Getwd(); err == nil {
			for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1", "libonnxruntime.dylib"} {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return fmt.Errorf("init onnxruntime: %w", ortInitErr)
	}
	return nil
}

func (p *OnnxPolicy) Close() error {
	return p.session.Destroy()
}

func (p *OnnxPolicy) Choose(state *game.DriveState) (rules.Intent, error) {
	legal := LegalIntents(state)
	if len(legal) == 1 {
		return legal[0], nil
	}
	if int64(state.Settings.Rows) != p.rows || int64(state.Settings.Cols) != p.cols {
		return rules.Intent{}, fmt.Errorf("board %dx%d does not match model input %dx%d",
			state.Settings.Cols, state.Settings.Rows, p.cols, p.rows)
	}

	scores, err := p.predict(state)
	if err != nil {
		return rules.Intent{}, err
	}
	return argmaxLegal(scores, legal)
}

func (p *OnnxPolicy) predict(state *game.DriveState) ([]float32, error) {
	buf := EncodeState(state)
	defer PutBuffer(buf)

	input, err := ort.NewTensor(ort.NewShape(1, Channels, p.rows, p.cols), *buf)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ActionSize))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	p.mu.Lock()
	err = p.session.Run([]ort.Value{input}, []ort.Value{output})
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	scores := make([]float32, ActionSize)
	copy(scores, output.GetData())
	return scores, nil
}

// argmaxLegal returns the legal intent with the highest finite score.
func argmaxLegal(scores []float32, legal []rules.Intent) (rules.Intent, error) {
	var (
		best  rules.Intent
		found bool
		top   = float32(math.Inf(-1))
	)
	for _, in := range legal {
		i := ActionIndex(in)
		if i < 0 || i >= len(scores) {
			continue
		}
		v := scores[i]
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}
		if !found || v > top {
			best, top, found = in, v, true
		}
	}
	if !found {
		return rules.Intent{}, ErrModelOutput
	}
	return best, nil
}
