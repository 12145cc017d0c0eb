package publisher

// Publisher represents a service for announcing synchronized events
type Publisher interface {
	// Publish publishes a message under a field key
	Publish(key string, message []byte) error

	// Close closes the publisher connection
	Close() error
}
