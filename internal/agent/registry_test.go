package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSpec(name string, arch Archetype) Spec {
	return Spec{
		Name:         name,
		Description:  "test agent " + name,
		Archetype:    arch,
		Capabilities: []string{"writing", "writing", "research"},
		Tools:        []string{"content_generator", "data_analyzer"},
		Knowledge:    Knowledge{Experience: 40, Specializations: []string{"seo"}},
	}
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	a, err := reg.Create(newSpec("Nora", ArchetypeSpecialist))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, []string{"writing", "research"}, a.Capabilities)
	assert.Zero(t, a.Performance.TasksCompleted)
	assert.Empty(t, a.Memory.Episodic)
	assert.NotNil(t, a.Memory.Semantic)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestRegistryCreateValidation(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	_, err := reg.Create(Spec{Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidAgent)

	_, err = reg.Create(Spec{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidAgent)

	_, err = reg.Create(Spec{Name: "x", Description: "y", Archetype: "wizard"})
	assert.ErrorIs(t, err, ErrInvalidAgent)

	a, err := reg.Create(Spec{Name: "x", Description: "y"})
	require.NoError(t, err)
	assert.Equal(t, ArchetypeGeneral, a.Archetype)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a, err := reg.Create(newSpec("Nora", ArchetypeAssistant))
	require.NoError(t, err)

	got, err := reg.Get(a.ID)
	require.NoError(t, err)
	got.Tools[0] = "mutated"
	got.Name = "mutated"

	again, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "content_generator", again.Tools[0])
	assert.Equal(t, "Nora", again.Name)

	_, err = reg.Get("missing")
	assert.True(t, errors.Is(err, ErrAgentNotFound))
}

func TestRegistryListByArchetype(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	_, _ = reg.Create(newSpec("a", ArchetypeSpecialist))
	_, _ = reg.Create(newSpec("b", ArchetypeAssistant))
	_, _ = reg.Create(newSpec("c", ArchetypeSpecialist))

	assert.Len(t, reg.List(), 3)
	specialists := reg.ListByArchetype(ArchetypeSpecialist)
	require.Len(t, specialists, 2)
	for _, s := range specialists {
		assert.Equal(t, ArchetypeSpecialist, s.Archetype)
	}
	assert.Empty(t, reg.ListByArchetype(ArchetypeCoordinator))
}

func TestRegistryUpdateAndStatus(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a, _ := reg.Create(newSpec("Nora", ArchetypeGeneral))

	ok := reg.Update(a.ID, Patch{Name: "Nora II", Tools: []string{"web_scraper"}})
	require.True(t, ok)
	got, _ := reg.Get(a.ID)
	assert.Equal(t, "Nora II", got.Name)
	assert.Equal(t, a.Description, got.Description)
	assert.Equal(t, []string{"web_scraper"}, got.Tools)
	assert.False(t, got.LastActive.Before(a.LastActive))

	assert.False(t, reg.Update("missing", Patch{Name: "x"}))

	require.True(t, reg.Deactivate(a.ID))
	got, _ = reg.Get(a.ID)
	assert.Equal(t, StatusInactive, got.Status)
	require.True(t, reg.Activate(a.ID))
	got, _ = reg.Get(a.ID)
	assert.Equal(t, StatusActive, got.Status)
	assert.False(t, reg.Activate("missing"))
}

func TestRegistryConcurrentCreateUniqueIDs(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	const n = 200

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := reg.Create(newSpec("bulk", ArchetypeGeneral))
			if err == nil {
				ids <- a.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, reg.List(), n)
}

type recordingPersister struct {
	mu    sync.Mutex
	saved []string
}

func (p *recordingPersister) SaveAgent(_ context.Context, a *Agent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, a.ID)
	return nil
}

func TestRegistryPersistsMutations(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	p := &recordingPersister{}
	reg.SetPersister(p)

	a, _ := reg.Create(newSpec("Nora", ArchetypeGeneral))
	reg.Touch(a.ID)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []string{a.ID, a.ID}, p.saved)
}

type slowPersister struct {
	mu       sync.Mutex
	versions []int64
	last     *Agent
}

func (p *slowPersister) SaveAgent(_ context.Context, a *Agent) error {
	time.Sleep(time.Duration(a.Version%5) * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, a.Version)
	p.last = a
	return nil
}

func TestRegistryPersistsSnapshotsInOrder(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	p := &slowPersister{}
	reg.SetPersister(p)

	a, err := reg.Create(newSpec("Nora", ArchetypeGeneral))
	require.NoError(t, err)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, reg.Mutate(a.ID, func(a *Agent) { a.Performance.TasksCompleted++ }))
		}()
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.versions, n+1)
	for i := 1; i < len(p.versions); i++ {
		assert.Less(t, p.versions[i-1], p.versions[i])
	}
	assert.Equal(t, n, p.last.Performance.TasksCompleted)
	assert.Equal(t, int64(n+1), p.last.Version)

	got, _ := reg.Get(a.ID)
	assert.Equal(t, got.Version, p.last.Version)
}
