package publisher

import (
	"errors"
	"fmt"

	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// ErrBootstrapFailed is returned when at least one location failed.
var ErrBootstrapFailed = errors.New("bootstrap failed")

// ConsistencyError reports that a location stored an artifact bundle under a
// different content hash than an earlier location. It aborts the run.
type ConsistencyError struct {
	Kind     interfaces.ObjectKind
	Location string
	Expected interfaces.ContentHash
	Got      interfaces.ContentHash
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("location %s stored %s bundle as %s, previous locations stored %s",
		e.Location, e.Kind, e.Got, e.Expected)
}
