// Package core provides the runtime environment shared by the service packages
package core

import (
	"os"
	"sync"
)

// Environments
const (
	Development = "development"
	Production  = "production"
)

// EnvKey is the environment variable consulted when no environment was set
const EnvKey = "BITLY_ENV"

var (
	mu  sync.RWMutex
	env string
)

// SetEnvironment overrides the runtime environment
func SetEnvironment(e string) {
	mu.Lock()
	env = e
	mu.Unlock()
}

// Environment returns the runtime environment, defaulting to development
func Environment() string {
	mu.RLock()
	e := env
	mu.RUnlock()
	if e != "" {
		return e
	}
	if e := os.Getenv(EnvKey); e != "" {
		return e
	}

	return Development
}

// IsProduction reports whether the service runs in production
func IsProduction() bool {
	return Environment() == Production
}
