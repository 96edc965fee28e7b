package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAgentNotFound is returned when an agent ID doesn't exist.
var ErrAgentNotFound = errors.New("agent not found")

// ErrInvalidAgent is returned when an agent spec fails validation.
var ErrInvalidAgent = errors.New("invalid agent")

// Persister stores agent snapshots outside the process.
type Persister interface {
	SaveAgent(ctx context.Context, a *Agent) error
}

// Registry owns every Agent record. Callers only ever see copies.
//
// Snapshots of one agent reach the Persister in mutation order: each agent
// has a save lock held from the mutation until its snapshot is saved.
type Registry struct {
	agents    map[string]*Agent
	saveLocks map[string]*sync.Mutex
	persister Persister
	now       func() time.Time
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		agents:    make(map[string]*Agent),
		saveLocks: make(map[string]*sync.Mutex),
		now:       time.Now,
		logger:    logger,
	}
}

// SetPersister attaches a snapshot store. Nil disables persistence.
func (r *Registry) SetPersister(p Persister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persister = p
}

// Create validates spec and registers a new active agent.
func (r *Registry) Create(spec Spec) (*Agent, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAgent)
	}
	if strings.TrimSpace(spec.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidAgent)
	}
	if spec.Archetype == "" {
		spec.Archetype = ArchetypeGeneral
	}
	if !spec.Archetype.Valid() {
		return nil, fmt.Errorf("%w: unknown archetype %q", ErrInvalidAgent, spec.Archetype)
	}

	now := r.now()
	a := &Agent{
		ID:           uuid.New().String(),
		Name:         spec.Name,
		Description:  spec.Description,
		Archetype:    spec.Archetype,
		Capabilities: dedupe(spec.Capabilities),
		Tools:        cloneStrings(spec.Tools),
		Personality:  spec.Personality.clone(),
		Knowledge:    spec.Knowledge.clone(),
		Memory:       Memory{Semantic: make(map[string][]Sample)},
		Status:       StatusActive,
		CreatedAt:    now,
		LastActive:   now,
		Version:      1,
	}

	save := &sync.Mutex{}
	save.Lock()
	defer save.Unlock()

	r.mu.Lock()
	r.agents[a.ID] = a
	r.saveLocks[a.ID] = save
	snap := a.Clone()
	r.mu.Unlock()

	r.logger.Info("registered agent",
		zap.String("id", a.ID),
		zap.String("name", a.Name),
		zap.String("archetype", string(a.Archetype)))
	r.persist(snap)
	return snap, nil
}

// Restore inserts a previously persisted agent as-is.
func (r *Registry) Restore(a *Agent) {
	c := a.Clone()
	if c.Memory.Semantic == nil {
		c.Memory.Semantic = make(map[string][]Sample)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[c.ID] = c
}

// Get returns a copy of the agent with the given ID.
func (r *Registry) Get(id string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a.Clone(), nil
}

// List returns all agents ordered by creation time.
func (r *Registry) List() []*Agent {
	return r.filter(func(*Agent) bool { return true })
}

// ListByArchetype returns all agents of the given archetype.
func (r *Registry) ListByArchetype(arch Archetype) []*Agent {
	return r.filter(func(a *Agent) bool { return a.Archetype == arch })
}

func (r *Registry) filter(keep func(*Agent) bool) []*Agent {
	r.mu.RLock()
	result := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if keep(a) {
			result = append(result, a.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Update merges the non-zero fields of p into the agent.
func (r *Registry) Update(id string, p Patch) bool {
	err := r.Mutate(id, func(a *Agent) {
		if p.Name != "" {
			a.Name = p.Name
		}
		if p.Description != "" {
			a.Description = p.Description
		}
		if p.Capabilities != nil {
			a.Capabilities = dedupe(p.Capabilities)
		}
		if p.Tools != nil {
			a.Tools = cloneStrings(p.Tools)
		}
		if p.Personality != nil {
			a.Personality = p.Personality.clone()
		}
		if p.Knowledge != nil {
			a.Knowledge = p.Knowledge.clone()
		}
		a.LastActive = r.now()
	})
	return err == nil
}

// Activate marks the agent active.
func (r *Registry) Activate(id string) bool { return r.setStatus(id, StatusActive) }

// Deactivate marks the agent inactive.
func (r *Registry) Deactivate(id string) bool { return r.setStatus(id, StatusInactive) }

func (r *Registry) setStatus(id string, s Status) bool {
	err := r.Mutate(id, func(a *Agent) {
		a.Status = s
		a.LastActive = r.now()
	})
	return err == nil
}

// Touch refreshes the agent's last-active timestamp.
func (r *Registry) Touch(id string) {
	_ = r.Mutate(id, func(a *Agent) { a.LastActive = r.now() })
}

// Mutate applies fn to the stored agent under the write lock, bumps its
// version and persists the result. fn must not retain the pointer.
func (r *Registry) Mutate(id string, fn func(a *Agent)) error {
	save, ok := r.saveLock(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	save.Lock()
	defer save.Unlock()

	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	fn(a)
	a.Version++
	snap := a.Clone()
	r.mu.Unlock()

	r.persist(snap)
	return nil
}

func (r *Registry) saveLock(id string) (*sync.Mutex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return nil, false
	}
	l, ok := r.saveLocks[id]
	if !ok {
		l = &sync.Mutex{}
		r.saveLocks[id] = l
	}
	return l, true
}

func (r *Registry) persist(a *Agent) {
	r.mu.RLock()
	p := r.persister
	r.mu.RUnlock()
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.SaveAgent(ctx, a); err != nil {
		r.logger.Warn("persist agent failed", zap.String("id", a.ID), zap.Error(err))
	}
}

func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
