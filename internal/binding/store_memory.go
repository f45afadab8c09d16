package binding

import (
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	bindings map[string]map[string]Binding // license id -> fingerprint -> binding
}

func NewMemoryStore() Store {
	return &memoryStore{bindings: make(map[string]map[string]Binding)}
}

func (s *memoryStore) Link(licenseID, fingerprint string, max int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.bindings[licenseID]
	if slots == nil {
		slots = make(map[string]Binding)
		s.bindings[licenseID] = slots
	}
	if _, ok := slots[fingerprint]; ok {
		return nil
	}
	// Count and insert under one lock, so the limit cannot be raced past.
	if len(slots) >= max {
		return ErrDeviceLimitReached
	}
	slots[fingerprint] = Binding{LicenseID: licenseID, Fingerprint: fingerprint, BoundAt: now}
	return nil
}

func (s *memoryStore) IsLinked(licenseID, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.bindings[licenseID][fingerprint]
	return ok, nil
}

func (s *memoryStore) Unlink(licenseID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bindings[licenseID], fingerprint)
	return nil
}

func (s *memoryStore) Count(licenseID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.bindings[licenseID]), nil
}
