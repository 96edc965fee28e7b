package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/jackc/pgx/v5"
)

// SaveAgent upserts an agent snapshot. A snapshot older than the stored
// row (lower version) is ignored.
func (s *Store) SaveAgent(ctx context.Context, a *agent.Agent) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode agent %s: %w", a.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO agents (id, name, archetype, status, doc, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			archetype = EXCLUDED.archetype,
			status = EXCLUDED.status,
			doc = EXCLUDED.doc,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE agents.version < EXCLUDED.version`,
		a.ID, a.Name, string(a.Archetype), string(a.Status), doc, a.Version, a.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent retrieves a single agent by ID.
func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	var doc []byte
	if err := s.db.QueryRow(ctx, `SELECT doc FROM agents WHERE id = $1`, id).Scan(&doc); err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	var a agent.Agent
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("decode agent %s: %w", id, err)
	}
	return &a, nil
}

// ListAgents returns every stored agent in creation order.
func (s *Store) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	return listDocs[agent.Agent](ctx, s, `SELECT doc FROM agents ORDER BY created_at, id`)
}

// SaveTask upserts a task snapshot.
func (s *Store) SaveTask(ctx context.Context, t *task.Task) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO tasks (id, agent_id, type, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.AgentID, t.Type, string(t.Status), doc, t.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// ListTasks returns every stored task in creation order.
func (s *Store) ListTasks(ctx context.Context) ([]*task.Task, error) {
	return listDocs[task.Task](ctx, s, `SELECT doc FROM tasks ORDER BY created_at, id`)
}

// SaveCollaboration upserts a collaboration snapshot.
func (s *Store) SaveCollaboration(ctx context.Context, c *orchestrator.Collaboration) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collaboration %s: %w", c.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO collaborations (id, mode, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
		c.ID, string(c.Mode), string(c.Status), doc, c.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save collaboration %s: %w", c.ID, err)
	}
	return nil
}

// ListCollaborations returns every stored collaboration in creation order.
func (s *Store) ListCollaborations(ctx context.Context) ([]*orchestrator.Collaboration, error) {
	return listDocs[orchestrator.Collaboration](ctx, s, `SELECT doc FROM collaborations ORDER BY created_at, id`)
}

func listDocs[T any](ctx context.Context, s *Store, query string) ([]*T, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, &v)
	}
	return out, nil
}
