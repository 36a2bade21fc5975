package session

// listeners is an ordered callback set. The owner guards it.
type listeners[T any] struct {
	next int
	fns  []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.next++
	id := l.next
	l.fns = append(l.fns, listener[T]{id: id, fn: fn})
	return func() {
		for i, e := range l.fns {
			if e.id == id {
				l.fns = append(l.fns[:i:i], l.fns[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[T]) list() []func(T) {
	out := make([]func(T), len(l.fns))
	for i, e := range l.fns {
		out[i] = e.fn
	}
	return out
}
