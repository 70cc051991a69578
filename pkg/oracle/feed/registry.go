package feed

import (
	"fmt"
	"sync"
)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a feed factory to the registry
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Create creates a new feed client instance by type name
func Create(feedType string, cfg map[string]interface{}) (Client, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := registry[feedType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeedType, feedType)
	}

	return factory(cfg)
}

// List returns all registered feed type names
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
