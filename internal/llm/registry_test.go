package llm

import (
	"github.com/soyeahso/beacon/internal/logging"
)

func newTestRegistry() *Registry {
	return NewRegistry(logging.Silent())
}
