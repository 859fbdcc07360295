package testutil

import (
	"github.com/skosovsky/chainy"
)

// NewTestRegistry returns a Registry with panic recovery enabled, suitable for tests.
func NewTestRegistry(caps ...*chainy.Capability) *chainy.Registry {
	reg := chainy.NewRegistry(caps...)
	reg.Use(chainy.WithRecovery())
	return reg
}
