package biometric

import (
	"errors"
	"sync"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrAlreadyEnrolled  = errors.New("identity already enrolled")
)

// TemplateStore is the identity-store boundary: one stored template per
// identity anchor. Implementations live outside the core; the memory store
// below covers devices and tests.
type TemplateStore interface {
	// Lookup returns the stored template for an identity anchor.
	Lookup(anchor string) (Template, error)
	// Register stores a template for a new identity anchor.
	Register(anchor string, tpl Template) error
}

type memoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryTemplateStore() TemplateStore {
	return &memoryTemplateStore{templates: make(map[string]Template)}
}

func (s *memoryTemplateStore) Lookup(anchor string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[anchor]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *memoryTemplateStore) Register(anchor string, tpl Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[anchor]; ok {
		return ErrAlreadyEnrolled
	}
	s.templates[anchor] = tpl
	return nil
}
