package hook

import (
	"github.com/sasha-s/go-deadlock"
)

// serialQueue totally orders every dispatch table mutation made by the
// engine. Callers block until earlier mutations finish; invocations of
// hooked methods never enter the queue.
type serialQueue struct {
	mu deadlock.Mutex
}

var queue serialQueue

func (q *serialQueue) sync(fn func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fn()
}

func (q *serialQueue) do(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn()
}
