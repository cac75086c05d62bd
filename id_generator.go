package tasklane

import "github.com/google/uuid"

//go:generate go tool mockgen -source=id_generator.go -destination=mock_id_generator_test.go -package=tasklane

// IDGenerator provides unique ID generation for tasks and stream subscribers
type IDGenerator interface {
	// GenerateTaskID generates a unique task identifier
	GenerateTaskID() string
	// GenerateSubscriberID generates a unique event queue subscriber identifier
	GenerateSubscriberID() string
}

// DefaultIDGenerator implements IDGenerator using UUID v7
type DefaultIDGenerator struct{}

// GenerateTaskID generates a task ID using UUID v7
func (g *DefaultIDGenerator) GenerateTaskID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateSubscriberID generates a subscriber ID using UUID v7
func (g *DefaultIDGenerator) GenerateSubscriberID() string {
	return uuid.Must(uuid.NewV7()).String()
}
