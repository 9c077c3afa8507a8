// Package xstreamid generates stable identity handles for pools,
// scheduler instances, and execution streams.
package xstreamid

import "github.com/google/uuid"

// New returns a fresh random identity handle.
func New() string {
	return uuid.NewString()
}

// Short returns an 8-character prefix of a fresh handle, for use in log
// lines and CLI output where a full UUID is noise.
func Short() string {
	return uuid.NewString()[:8]
}
