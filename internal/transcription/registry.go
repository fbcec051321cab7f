package transcription

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a backend from its option map.
type Factory[T any] func(options map[string]string) (T, error)

// Registry holds named backend factories.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// Register adds a named factory, replacing any previous one.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates the named backend.
func (r *Registry[T]) Create(name string, options map[string]string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown backend %q (have %v)", name, r.List())
	}
	return factory(options)
}

// Has reports whether a factory is registered under name.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered names, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Built-in backend registries.
var (
	Recognizers = NewRegistry[Recognizer]()
	Diarizers   = NewRegistry[Diarizer]()
	Aligners    = NewRegistry[Aligner]()
)

func init() {
	Recognizers.Register("whisper", func(o map[string]string) (Recognizer, error) {
		return NewWhisperRecognizer(o), nil
	})
	Recognizers.Register("openai", func(o map[string]string) (Recognizer, error) {
		return NewOpenAIRecognizer(o)
	})
	Diarizers.Register("command", func(o map[string]string) (Diarizer, error) {
		return NewCommandDiarizer(o)
	})
	Diarizers.Register("rttm", func(o map[string]string) (Diarizer, error) {
		return NewRTTMDirDiarizer(o)
	})
	Aligners.Register("none", func(map[string]string) (Aligner, error) {
		return PassthroughAligner{}, nil
	})
	Aligners.Register("interpolate", func(map[string]string) (Aligner, error) {
		return InterpolateAligner{}, nil
	})
}
