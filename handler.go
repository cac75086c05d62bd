package tasklane

import "context"

//go:generate go tool mockgen -source=handler.go -destination=mock_handler_test.go -package=tasklane

// Handler processes a task. It reports progress through the TaskModifier and
// returns when it is done with the current request.
//
// A returned error marks the task failed with the error text as the status message.
// Returning nil leaves the task in whatever state the handler put it.
type Handler interface {
	HandleTask(ctx context.Context, modifier TaskModifier) error
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx context.Context, m TaskModifier) error

func (f HandlerFunc) HandleTask(ctx context.Context, m TaskModifier) error {
	return f(ctx, m)
}
