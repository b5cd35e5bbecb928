package data

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Provider is a lazily-resolved Value, letting a caller hand the renderer a
// future-backed value (e.g. a pending RPC result) instead of blocking before
// render begins. The renderer resolves a Provider the first time a template
// actually needs its value; if it isn't ready yet, the renderer flushes all
// output buffered so far before blocking, per the streaming discipline
// described for the render package.
type Provider interface {
	// Ready reports whether Resolve will return immediately.
	Ready() bool

	// Resolve blocks until the value is available, returning it or an error
	// raised while producing it. Resolve may be called more than once (every
	// use of a ProviderValue calls it) and concurrently; implementations MUST
	// return the same outcome each time and tolerate concurrent calls safely.
	Resolve() (Value, error)
}

// ImmediateProvider wraps an already-known Value, satisfying the Provider
// interface for code paths that accept both plain values and providers.
type ImmediateProvider struct{ V Value }

func (p ImmediateProvider) Ready() bool             { return true }
func (p ImmediateProvider) Resolve() (Value, error) { return p.V, nil }

// FutureProvider holds the outcome of fn, which runs exactly once on a
// background goroutine started by NewFutureProvider (or by FutureGroup.Go);
// Ready and Resolve only observe that run, they never start it.
type FutureProvider struct {
	once  sync.Once
	fn    func() (Value, error)
	done  chan struct{}
	value Value
	err   error
}

// NewFutureProvider starts fn on a background goroutine immediately; by the
// time the renderer needs the value, it may already be done.
func NewFutureProvider(fn func() (Value, error)) *FutureProvider {
	p := &FutureProvider{fn: fn, done: make(chan struct{})}
	go p.run()
	return p
}

func (p *FutureProvider) run() {
	p.once.Do(func() {
		p.value, p.err = p.fn()
		close(p.done)
	})
}

func (p *FutureProvider) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *FutureProvider) Resolve() (Value, error) {
	<-p.done
	return p.value, p.err
}

// FutureGroup runs a batch of lazily-needed computations concurrently via
// an errgroup.Group, handing back one Provider per computation. If any
// computation returns an error, the group's shared context is canceled, so
// sibling computations that check ctx.Err() can abandon early.
type FutureGroup struct {
	ctx context.Context
	g   *errgroup.Group
}

// NewFutureGroup returns a FutureGroup whose computations share a context
// derived from ctx, canceled on the first error (per errgroup.WithContext).
func NewFutureGroup(ctx context.Context) *FutureGroup {
	g, gctx := errgroup.WithContext(ctx)
	return &FutureGroup{ctx: gctx, g: g}
}

// Go starts fn on the group and returns a Provider for its eventual result.
// fn should observe fg's context and return promptly if it's done.
func (fg *FutureGroup) Go(fn func(ctx context.Context) (Value, error)) *FutureProvider {
	var p = &FutureProvider{done: make(chan struct{})}
	fg.g.Go(func() error {
		p.value, p.err = fn(fg.ctx)
		close(p.done)
		return p.err
	})
	return p
}

// Wait blocks until every computation started with Go has completed,
// returning the first error encountered, if any.
func (fg *FutureGroup) Wait() error {
	return fg.g.Wait()
}

// ProviderValue adapts a Provider into a Value, so a lazily-resolved
// computation can be stored anywhere a Value is expected (template scope,
// call params). Truthy/String/Equals block on Resolve the first time the
// value is actually needed; callers that want to flush buffered output
// before blocking should check Ready() themselves beforehand.
type ProviderValue struct{ P Provider }

func (v ProviderValue) resolve() Value {
	val, err := v.P.Resolve()
	if err != nil {
		panic(err)
	}
	return val
}

func (v ProviderValue) Truthy() bool            { return v.resolve().Truthy() }
func (v ProviderValue) String() string          { return v.resolve().String() }
func (v ProviderValue) Equals(other Value) bool { return v.resolve().Equals(other) }
