package parproc

const (
	initialFifoCapacity = 1024
)

// fifoQueue is the pool's ready queue: a first-in-first-out ring buffer
// that grows instead of dropping, so Submit never blocks and never loses
// a job. It is not safe for concurrent use; the pool guards it with its
// mutex.
type fifoQueue[E any] struct {
	buf        []E // circular buffer
	head, tail int // read/write indices
	size       int // number of elements currently buffered
	capacity   int
}

func newFifoQueue[E any](capacity int) *fifoQueue[E] {
	if capacity <= 0 {
		capacity = initialFifoCapacity
	}
	return &fifoQueue[E]{
		buf:      make([]E, capacity),
		capacity: capacity,
	}
}

// Len returns the number of elements currently waiting in the queue.
func (q *fifoQueue[E]) Len() int { return q.size }

// Push appends e at the tail, doubling the buffer when it is full.
func (q *fifoQueue[E]) Push(e E) {
	if q.size == q.capacity {
		q.grow()
	}
	q.buf[q.tail] = e
	q.tail++
	if q.tail == q.capacity {
		q.tail = 0
	}
	q.size++
}

// Pop removes and returns the oldest element.
func (q *fifoQueue[E]) Pop() (E, bool) {
	var zero E
	if q.size == 0 {
		return zero, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = zero
	q.head++
	if q.head == q.capacity {
		q.head = 0
	}
	q.size--
	return e, true
}

// Drain removes every queued element and returns them in FIFO order.
func (q *fifoQueue[E]) Drain() []E {
	out := make([]E, 0, q.size)
	for {
		e, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// grow doubles the capacity and unwraps the ring so head starts at 0.
// It is only called on a full buffer, where head == tail.
func (q *fifoQueue[E]) grow() {
	newCap := q.capacity * 2
	buf := make([]E, newCap)
	n := copy(buf, q.buf[q.head:])
	copy(buf[n:], q.buf[:q.tail])
	q.buf = buf
	q.head = 0
	q.tail = q.size
	q.capacity = newCap
}
