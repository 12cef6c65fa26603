package idtheory

import (
	"sync"

	"github.com/theory-cloud/idtheory/pkg/layout"
)

var (
	defaultsMu sync.Mutex
	defaults   = map[layout.Scheme]*Generator{}
)

// Default returns the process-wide generator for scheme, building it with
// default options on first use.
func Default(scheme layout.Scheme) (*Generator, error) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if g, ok := defaults[scheme]; ok {
		return g, nil
	}
	g, err := New(scheme)
	if err != nil {
		return nil, err
	}
	defaults[scheme] = g
	return g, nil
}

func NewV1(opts ...Option) (*Generator, error) { return New(layout.SchemeV1, opts...) }

func NewV6(opts ...Option) (*Generator, error) { return New(layout.SchemeV6, opts...) }

func NewV7(opts ...Option) (*Generator, error) { return New(layout.SchemeV7, opts...) }

func NewULID(opts ...Option) (*Generator, error) { return New(layout.SchemeULID, opts...) }

func NewPrefixComb(opts ...Option) (*Generator, error) {
	return New(layout.SchemePrefixComb, opts...)
}
