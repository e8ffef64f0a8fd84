// Package viewstate models what a page region shows while its data is
// loading, failed, empty or ready.
package viewstate

// Kind tags a State.
type Kind string

const (
	Loading Kind = "loading"
	Error   Kind = "error"
	Empty   Kind = "empty"
	Ready   Kind = "ready"
)

// State is a tagged variant. Data is meaningful only when Kind is Ready,
// Err only when Kind is Error.
type State[T any] struct {
	Kind Kind
	Data T
	Err  error
}

func NewLoading[T any]() State[T] {
	return State[T]{Kind: Loading}
}

func NewError[T any](err error) State[T] {
	return State[T]{Kind: Error, Err: err}
}

func NewEmpty[T any]() State[T] {
	return State[T]{Kind: Empty}
}

func NewReady[T any](data T) State[T] {
	return State[T]{Kind: Ready, Data: data}
}

// FromResult classifies the outcome of a fetch. isEmpty decides when a
// successful result has nothing to show.
func FromResult[T any](data T, err error, isEmpty func(T) bool) State[T] {
	if err != nil {
		return NewError[T](err)
	}
	if isEmpty != nil && isEmpty(data) {
		return NewEmpty[T]()
	}
	return NewReady(data)
}

// FromSlice is FromResult for list results.
func FromSlice[E any](data []E, err error) State[[]E] {
	return FromResult(data, err, func(s []E) bool { return len(s) == 0 })
}

func (s State[T]) IsLoading() bool { return s.Kind == Loading }
func (s State[T]) IsError() bool   { return s.Kind == Error }
func (s State[T]) IsEmpty() bool   { return s.Kind == Empty }
func (s State[T]) IsReady() bool   { return s.Kind == Ready }

// Message returns the error text for templates.
func (s State[T]) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Views maps each kind to the template that renders it.
type Views struct {
	Loading string
	Error   string
	Empty   string
	Ready   string
}

// Select returns the template for the state's kind.
func Select[T any](s State[T], v Views) string {
	switch s.Kind {
	case Error:
		return v.Error
	case Empty:
		return v.Empty
	case Ready:
		return v.Ready
	default:
		return v.Loading
	}
}
