package tasklane_test

import (
	"testing"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/tasklanetest"
)

func TestInMemoryEventQueue(t *testing.T) {
	tasklanetest.RunEventQueueTests(t, func(t *testing.T) tasklane.EventQueue {
		return tasklane.NewInMemoryEventQueue()
	})
}
