// Package promise models the result of a downstream HTTP call as a value that
// is available now or later. Continuations attached with Then run exactly once,
// after the result is known, on whichever goroutine completes the promise.
// Nothing in this package starts goroutines.
package promise

import (
	"context"
	"net/http"
	"sync"
)

// Continuation receives the settled result and produces the result of the
// derived promise.
type Continuation func(*http.Response, error) (*http.Response, error)

// Resolver settles a deferred promise. Only the first call has an effect.
type Resolver func(*http.Response, error)

// Promise is a single (*http.Response, error) result.
type Promise struct {
	mu      sync.Mutex
	settled bool
	done    chan struct{}
	resp    *http.Response
	err     error
	waiters []func(*http.Response, error)
}

// Resolved returns a promise that is already settled.
func Resolved(resp *http.Response, err error) *Promise {
	p := &Promise{done: make(chan struct{})}
	p.settle(resp, err)
	return p
}

// Deferred returns an unsettled promise and the function that settles it.
func Deferred() (*Promise, Resolver) {
	p := &Promise{done: make(chan struct{})}
	return p, p.settle
}

func (p *Promise) settle(resp *http.Response, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.resp, p.err = resp, err
	waiters := p.waiters
	p.waiters = nil
	close(p.done)
	p.mu.Unlock()

	for _, w := range waiters {
		w(resp, err)
	}
}

// Then attaches fn and returns a promise for its result. If p is already
// settled fn runs immediately on the calling goroutine, otherwise it runs on
// the goroutine that settles p.
func (p *Promise) Then(fn Continuation) *Promise {
	next, resolve := Deferred()

	run := func(resp *http.Response, err error) {
		resolve(fn(resp, err))
	}

	p.mu.Lock()
	if !p.settled {
		p.waiters = append(p.waiters, run)
		p.mu.Unlock()
		return next
	}
	resp, err := p.resp, p.err
	p.mu.Unlock()

	run(resp, err)
	return next
}

// Settled reports whether the result is available.
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the promise settles or ctx is done. Giving up on the wait
// does not cancel the underlying call nor any attached continuation.
func (p *Promise) Wait(ctx context.Context) (*http.Response, error) {
	if p.Settled() {
		return p.resp, p.err
	}

	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handler produces a response for a request and its request-scoped options.
type Handler interface {
	Invoke(r *http.Request, opts map[string]any) *Promise
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(r *http.Request, opts map[string]any) *Promise

func (f HandlerFunc) Invoke(r *http.Request, opts map[string]any) *Promise {
	return f(r, opts)
}

// FromRoundTripper adapts a synchronous transport. The returned promises are
// always settled.
func FromRoundTripper(rt http.RoundTripper) Handler {
	return HandlerFunc(func(r *http.Request, _ map[string]any) *Promise {
		return Resolved(rt.RoundTrip(r))
	})
}
