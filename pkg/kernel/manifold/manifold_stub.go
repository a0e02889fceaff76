//go:build !manifold

// Package manifold is a kernel.Kernel backed by the Manifold C API. This
// build has no Manifold support; build with -tags=manifold to enable it.
package manifold

import (
	"errors"

	"github.com/chazu/csgnorm/pkg/kernel"
)

// ErrUnavailable is returned by New when the package was built without
// Manifold support.
var ErrUnavailable = errors.New("manifold: kernel not available, build with -tags=manifold")

// New always fails with ErrUnavailable in this build.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
