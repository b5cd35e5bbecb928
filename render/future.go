package render

import (
	"io"

	"github.com/robfig/miso/data"
)

// Sink is the renderer's output destination: anything a template can be
// written to. A Sink may additionally implement Flush() error (as
// bufio.Writer does); Execute wraps the caller's io.Writer in one so that
// output already produced can be pushed out before the renderer blocks on
// a not-yet-ready data.Provider.
type Sink = io.Writer

type flusher interface{ Flush() error }

// resolveProvider blocks on and returns a Provider-backed value's result,
// flushing any output buffered on s.wr first if the provider isn't ready
// yet, so a slow background computation never holds up bytes the renderer
// has already produced.
func (s *state) resolveProvider(v data.Value) data.Value {
	pv, ok := v.(data.ProviderValue)
	if !ok {
		return v
	}
	if !pv.P.Ready() {
		if f, ok := s.wr.(flusher); ok {
			f.Flush()
		}
	}
	resolved, err := pv.P.Resolve()
	if err != nil {
		s.errorf("provider: %v", err)
	}
	return resolved
}
