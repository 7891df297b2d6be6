// Package source yields the request descriptors a probe dispatches.
package source

import (
	"net/http"
	"strings"
)

// Descriptor identifies a single request. It is a value type and is shared
// read-only by every attempt of a run.
type Descriptor struct {
	Method string
	URL    string
}

// Source is a finite, single-use sequence of identical descriptors.
// It is drained by exactly one dispatcher and is not safe for concurrent use.
type Source struct {
	desc    Descriptor
	limit   int
	emitted int
}

// New returns a Source that yields desc up to limit times.
// A limit below zero yields nothing.
func New(desc Descriptor, limit int) *Source {
	if limit < 0 {
		limit = 0
	}
	desc.Method = strings.ToUpper(strings.TrimSpace(desc.Method))
	if desc.Method == "" {
		desc.Method = http.MethodGet
	}
	return &Source{desc: desc, limit: limit}
}

// Next returns the next descriptor, or false once the ceiling is reached.
func (s *Source) Next() (Descriptor, bool) {
	if s == nil || s.emitted >= s.limit {
		return Descriptor{}, false
	}
	s.emitted++
	return s.desc, true
}

// Emitted reports how many descriptors have been handed out.
func (s *Source) Emitted() int {
	if s == nil {
		return 0
	}
	return s.emitted
}
