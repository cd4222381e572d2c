package monitor

// pendingQueue is an unbounded FIFO of handlers that have never had Submit
// called. Adapted from scheduler.ThreadSafeQueue, which wraps
// container/heap for priority ordering; priority queues aren't needed
// here, so this keeps the mutex-guarded-slice shape but drops the heap in
// favor of plain append/shift FIFO semantics.
type pendingQueue struct {
	items []TaskHandler
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

func (q *pendingQueue) push(h TaskHandler) {
	q.items = append(q.items, h)
}

func (q *pendingQueue) len() int {
	return len(q.items)
}

// removeAt deletes the item at index i, preserving order of the rest.
func (q *pendingQueue) removeAt(i int) TaskHandler {
	h := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return h
}

// snapshot returns a throttled-dump-friendly copy; callers must not mutate
// the result.
func (q *pendingQueue) snapshot() []TaskHandler {
	out := make([]TaskHandler, len(q.items))
	copy(out, q.items)
	return out
}

// runningQueue is a bounded FIFO of dispatched handlers awaiting terminal
// status. Capacity enforcement lives in Monitor's admission check; this
// type only tracks membership and supports the Poller's lock-free
// snapshot iteration of the running set during a poll cycle.
type runningQueue struct {
	items []TaskHandler
}

func newRunningQueue() *runningQueue {
	return &runningQueue{}
}

func (q *runningQueue) push(h TaskHandler) {
	q.items = append(q.items, h)
}

func (q *runningQueue) len() int {
	return len(q.items)
}

// remove deletes h from the queue. Returns false if h was not present
// (already evicted, or never submitted).
func (q *runningQueue) remove(h TaskHandler) bool {
	for i, cur := range q.items {
		if cur == h {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *runningQueue) snapshot() []TaskHandler {
	out := make([]TaskHandler, len(q.items))
	copy(out, q.items)
	return out
}
