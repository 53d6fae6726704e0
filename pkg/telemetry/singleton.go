package telemetry

import "sync"

var (
	defaultMu         sync.RWMutex
	defaultDispatcher *Dispatcher
)

// Default returns the package-level dispatcher, lazily built with no
// providers on first use. Most applications build their own dispatcher
// and call SetDefault once at startup.
func Default() *Dispatcher {
	defaultMu.RLock()
	d := defaultDispatcher
	defaultMu.RUnlock()
	if d != nil {
		return d
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDispatcher == nil {
		defaultDispatcher = NewBuilder().Build()
	}
	return defaultDispatcher
}

// SetDefault replaces the package-level dispatcher.
func SetDefault(d *Dispatcher) {
	defaultMu.Lock()
	defaultDispatcher = d
	defaultMu.Unlock()
}
