package compute

import (
	"fmt"

	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/engine"
)

// Backend is an engine that can be selected by name.
type Backend interface {
	engine.Engine
	Name() string
}

// Names lists the backends New accepts.
func Names() []string {
	return []string{"cpu"}
}

// New returns the named backend. An empty name selects the CPU backend.
func New(name string, opts ...Option) (Backend, error) {
	switch name {
	case "", "cpu":
		return NewCPU(opts...), nil
	}
	return nil, fmt.Errorf("%w: backend %q", core.ErrUnsupported, name)
}
