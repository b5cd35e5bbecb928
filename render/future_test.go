package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/robfig/miso/data"
)

type flushTrackingWriter struct {
	bytes.Buffer
	flushed bool
}

func (w *flushTrackingWriter) Flush() error {
	w.flushed = true
	return nil
}

func TestResolveProviderImmediate(t *testing.T) {
	var s = &state{wr: &bytes.Buffer{}}
	var v = s.resolveProvider(data.ProviderValue{P: data.ImmediateProvider{V: data.Int(7)}})
	if v != data.Int(7) {
		t.Errorf("expected 7, got %v", v)
	}
}

func TestResolveProviderPassesThroughPlainValues(t *testing.T) {
	var s = &state{wr: &bytes.Buffer{}}
	var v = s.resolveProvider(data.String("x"))
	if v != data.String("x") {
		t.Errorf("expected unchanged value, got %v", v)
	}
}

func TestResolveProviderFlushesBeforeBlocking(t *testing.T) {
	var w = &flushTrackingWriter{}
	var s = &state{wr: w}

	var release = make(chan struct{})
	var p = data.NewFutureProvider(func() (data.Value, error) {
		<-release
		return data.Int(42), nil
	})

	var done = make(chan data.Value)
	go func() { done <- s.resolveProvider(data.ProviderValue{P: p}) }()

	// Give the background goroutine a chance to start before we block on
	// the result; the provider is not ready yet, so resolveProvider must
	// flush before waiting.
	time.Sleep(10 * time.Millisecond)
	if !w.flushed {
		t.Error("expected output to be flushed before blocking on a not-ready provider")
	}
	close(release)
	if v := <-done; v != data.Int(42) {
		t.Errorf("expected 42, got %v", v)
	}
}
