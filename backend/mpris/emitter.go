package mpris

// emitter is a typed "changed" event. Handlers run on the owner goroutine.
type emitter[T any] struct {
	handlers []func(T)
}

func (e *emitter[T]) On(fn func(T)) {
	e.handlers = append(e.handlers, fn)
}

func (e *emitter[T]) emit(v T) {
	for _, h := range e.handlers {
		h(v)
	}
}

func (e *emitter[T]) clear() {
	e.handlers = nil
}
