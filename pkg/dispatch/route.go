package dispatch

// Route handles a matched response. The value it returns becomes the
// Result of the dispatch.
type Route func(*Retriever) (any, error)

// Pass acknowledges the response and leaves the body unread.
func Pass() Route {
	return func(*Retriever) (any, error) { return nil, nil }
}

// To decodes the body into a T and returns it.
func To[T any]() Route {
	return func(r *Retriever) (any, error) {
		v, err := Retrieve[T](r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Consume decodes the body into a T and hands it to fn.
func Consume[T any](fn func(T) error) Route {
	return func(r *Retriever) (any, error) {
		v, err := Retrieve[T](r)
		if err != nil {
			return nil, err
		}
		return nil, fn(v)
	}
}

// Call runs fn with the retriever, for handlers that need the response
// metadata or decide for themselves whether to read the body.
func Call(fn func(*Retriever) error) Route {
	return func(r *Retriever) (any, error) {
		return nil, fn(r)
	}
}

// Fail ends the dispatch with err without reading the body.
func Fail(err error) Route {
	return func(*Retriever) (any, error) { return nil, err }
}

// Nest dispatches the same response again with another selector. The body
// stays unread until a nested route asks for it.
func Nest[K any](selector Selector[K], bindings ...Binding[K]) Route {
	return func(r *Retriever) (any, error) {
		return Nested(r, selector, bindings...)
	}
}
