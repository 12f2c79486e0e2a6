package remote

import "sync"

type listeners[T any] struct {
	mu   sync.Mutex
	next int
	m    map[int]func(T)
}

func (l *listeners[T]) add(f func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.m == nil {
		l.m = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.m[id] = f

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.m, id)
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.m))
	for _, f := range l.m {
		fns = append(fns, f)
	}
	l.mu.Unlock()

	for _, f := range fns {
		f(v)
	}
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
