package core

import "sync"

// Registry is the process-wide map from session id to its workflow. The
// mutex guards only lookup-and-create; it is never held across turn
// processing, which each workflow serialises itself.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Workflow
	factory  func(sessionID string) *Workflow
}

// NewRegistry builds a registry. The factory constructs a fresh workflow for
// a session id seen for the first time; two near-simultaneous first requests
// for one id still construct exactly one workflow.
func NewRegistry(factory func(sessionID string) *Workflow) *Registry {
	return &Registry{
		sessions: make(map[string]*Workflow),
		factory:  factory,
	}
}

// GetOrCreate returns the workflow for the session id, constructing it on
// first use.
func (r *Registry) GetOrCreate(sessionID string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wf, ok := r.sessions[sessionID]; ok {
		return wf
	}
	wf := r.factory(sessionID)
	r.sessions[sessionID] = wf
	return wf
}

// Get returns an existing workflow without creating one.
func (r *Registry) Get(sessionID string) (*Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.sessions[sessionID]
	return wf, ok
}

// Remove evicts a session. Retention policy belongs to the host; the
// registry only provides the hook.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
