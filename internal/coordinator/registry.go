package coordinator

import (
	"sort"
	"sync"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// Registry stores live sessions. It is owned by the orchestration layer and
// passed to the coordinator, never a process-wide singleton; several
// coordinators with independent registries can coexist in one process.
type Registry interface {
	Get(sessionID string) (*models.Session, bool)
	Put(sess *models.Session)
	List() []*models.Session
	Delete(sessionID string)
}

// MemoryRegistry is the in-process Registry. The lock guards only the map:
// per the single-writer contract, mutations to one session are serialized by
// the caller, while independent sessions may proceed in parallel.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]*models.Session)}
}

func (r *MemoryRegistry) Get(sessionID string) (*models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *MemoryRegistry) Put(sess *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.SessionID] = sess
}

// List returns sessions ordered by id for stable output.
func (r *MemoryRegistry) List() []*models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (r *MemoryRegistry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
