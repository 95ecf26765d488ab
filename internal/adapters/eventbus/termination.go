package eventbus

import "EventRelay/internal/core/ports"

// Never never stops the loop.
type Never[M any] struct{}

func (Never[M]) Terminates(M) bool { return false }

// Optional delegates to Inner when it is set and otherwise never stops.
type Optional[M any] struct {
	Inner ports.TerminationCondition[M]
}

func (o Optional[M]) Terminates(msg M) bool {
	if o.Inner == nil {
		return false
	}
	return o.Inner.Terminates(msg)
}

// OnValue stops on the first message equal to Sentinel.
type OnValue[M comparable] struct {
	Sentinel M
}

func (c OnValue[M]) Terminates(msg M) bool {
	return msg == c.Sentinel
}

// Func adapts a plain function. Closures may capture state.
type Func[M any] func(msg M) bool

func (f Func[M]) Terminates(msg M) bool { return f(msg) }

// AfterCount stops on the limit-th message of one kind.
type AfterCount[D comparable, M ports.Message[D]] struct {
	kind  D
	limit int
	seen  int
}

// NewAfterCount returns a condition firing on the limit-th occurrence of
// kind. A limit below one behaves like one.
func NewAfterCount[D comparable, M ports.Message[D]](kind D, limit int) *AfterCount[D, M] {
	if limit < 1 {
		limit = 1
	}
	return &AfterCount[D, M]{kind: kind, limit: limit}
}

func (c *AfterCount[D, M]) Terminates(msg M) bool {
	if msg.Discriminant() != c.kind {
		return false
	}
	c.seen++
	return c.seen >= c.limit
}

// Seen reports how many messages of the watched kind were evaluated.
func (c *AfterCount[D, M]) Seen() int {
	return c.seen
}
