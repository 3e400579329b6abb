package mcp

import (
	"slices"
	"sync"
)

// JobOwners records which MCP session started each watch job, so a job's
// results reach only that client. A job has at most one owner; a session
// may own many jobs.
type JobOwners struct {
	mu        sync.RWMutex
	byJob     map[string]string
	bySession map[string]map[string]struct{}
}

func NewJobOwners() *JobOwners {
	return &JobOwners{
		byJob:     make(map[string]string),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Claim makes sessionID the owner of jobID. A job re-registered from
// another session moves to it.
func (o *JobOwners) Claim(jobID, sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.byJob[jobID]; ok {
		o.drop(prev, jobID)
	}
	o.byJob[jobID] = sessionID
	jobs := o.bySession[sessionID]
	if jobs == nil {
		jobs = make(map[string]struct{})
		o.bySession[sessionID] = jobs
	}
	jobs[jobID] = struct{}{}
}

func (o *JobOwners) Owner(jobID string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	sid, ok := o.byJob[jobID]
	return sid, ok
}

// Release forgets a session that went away and returns the jobs it owned,
// sorted. The jobs keep running; their results are no longer pushed.
func (o *JobOwners) Release(sessionID string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	jobs := o.bySession[sessionID]
	delete(o.bySession, sessionID)

	out := make([]string, 0, len(jobs))
	for jid := range jobs {
		delete(o.byJob, jid)
		out = append(out, jid)
	}
	slices.Sort(out)
	return out
}

// drop removes jobID from sessionID's set. Callers hold mu.
func (o *JobOwners) drop(sessionID, jobID string) {
	jobs := o.bySession[sessionID]
	delete(jobs, jobID)
	if len(jobs) == 0 {
		delete(o.bySession, sessionID)
	}
}
