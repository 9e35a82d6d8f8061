// Package plugin groups actions and middlewares into installable
// bundles. A controller is assembled from one or more bundles.
package plugin

import (
	"time"

	"github.com/soyeahso/beacon/internal/action"
	"github.com/soyeahso/beacon/internal/middleware"
)

// Bundle is a named set of actions and middlewares that install
// together.
type Bundle struct {
	Name        string
	Actions     []action.Action
	Middlewares []middleware.Middleware
}

// now is swapped out by tests that need a fixed clock.
var now = time.Now
