package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background loop that lives as long as the application.
// Start blocks until ctx is cancelled or the worker is closed.
type Worker interface {
	Start(ctx context.Context) error
	Close() error
}
