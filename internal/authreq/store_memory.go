package authreq

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	requests map[string]*Request
}

func NewMemoryStore() Store {
	return &memoryStore{requests: make(map[string]*Request)}
}

func (s *memoryStore) Insert(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *memoryStore) ResolveIfPending(_ context.Context, id string, status Status, approverDeviceID, approverToken string, respondedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return ErrNotPending
	}
	req.Status = status
	req.ApproverDeviceID = approverDeviceID
	req.ApproverToken = approverToken
	req.RespondedAt = respondedAt
	return nil
}

func (s *memoryStore) ExpireOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, req := range s.requests {
		if req.Status == StatusPending && req.CreatedAt.Before(cutoff) {
			req.Status = StatusExpired
			req.RespondedAt = time.Now()
			expired = append(expired, id)
		}
	}
	return expired, nil
}
