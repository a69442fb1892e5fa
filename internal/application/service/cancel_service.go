package service

import (
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// CancelService is the process-wide registry of cancellation requests.
// The supervisor's streaming loop consults it cooperatively between lines;
// flags are cleared once the corresponding job reaches a terminal state.
type CancelService struct {
	mu        sync.Mutex
	cancelled map[string]bool
}

// NewCancelService creates an empty cancellation registry
func NewCancelService() *CancelService {
	return &CancelService{
		cancelled: make(map[string]bool),
	}
}

// Cancel flags a job for cancellation
func (s *CancelService) Cancel(id model.JobID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled[id.String()] = true
}

// IsCancelled reports whether a job has been flagged
func (s *CancelService) IsCancelled(id model.JobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled[id.String()]
}

// Clear removes a job's flag. Safe to call when no flag is set.
func (s *CancelService) Clear(id model.JobID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancelled, id.String())
}

// Size returns the number of outstanding flags
func (s *CancelService) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancelled)
}
