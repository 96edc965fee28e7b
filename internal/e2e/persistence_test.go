//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/comms"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/memory"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	pgstore "github.com/Moeabdelaziz007/auraos-sub002/internal/store"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/tool"
)

var (
	testLogger   *zap.Logger
	testPGStore  *pgstore.Store
	testRedisURL string
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("auraos_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { _ = testcontainers.TerminateContainer(container) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	cleanup := func() { _ = testcontainers.TerminateContainer(container) }
	return "redis://" + endpoint, cleanup, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger = zap.NewNop()

	dsn, stopPG, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	url, stopRedis, err := startRedis(ctx)
	if err != nil {
		stopPG()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	testRedisURL = url

	testPGStore, err = pgstore.New(ctx, dsn, testLogger)
	if err == nil {
		err = testPGStore.Migrate(ctx, "../../migrations")
	}
	if err != nil {
		stopRedis()
		stopPG()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	testPGStore.Close()
	stopRedis()
	stopPG()
	os.Exit(code)
}

func TestSnapshotsSurviveRestart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reg := agent.NewRegistry(testLogger)
	reg.SetPersister(testPGStore)
	tools := tool.NewRegistry()
	tool.RegisterBuiltinTools(tools)
	exec := task.NewExecutor(reg, tools, memory.NewTracker(reg, testLogger), task.Config{}, testLogger)
	exec.SetPersister(testPGStore)
	orch := orchestrator.New(exec, orchestrator.Config{}, testLogger)
	orch.SetPersister(testPGStore)

	lead, err := reg.Create(agent.Spec{Name: "lead", Description: "plans", Archetype: agent.ArchetypeCoordinator, Tools: []string{tool.TaskPlanner}})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	writer, err := reg.Create(agent.Spec{Name: "writer", Description: "writes", Archetype: agent.ArchetypeSpecialist, Tools: []string{tool.ContentGenerator}})
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}

	c, err := orch.CreateCollaboration(ctx, orchestrator.Spec{
		AgentIDs:        []string{lead.ID, writer.ID},
		TaskDescription: "draft release notes",
		Mode:            orchestrator.ModeHierarchical,
	})
	if err != nil {
		t.Fatalf("create collaboration: %v", err)
	}
	done, err := orch.Wait(ctx, c.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != orchestrator.StatusCompleted {
		t.Fatalf("status = %s, error = %s", done.Status, done.Error)
	}

	agents, err := testPGStore.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(agents))
	}
	var stored *agent.Agent
	for _, a := range agents {
		if a.ID == writer.ID {
			stored = a
		}
	}
	if stored == nil || stored.Performance.TasksCompleted != 1 {
		t.Fatalf("writer performance not persisted: %+v", stored)
	}

	tasks, err := testPGStore.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	for _, tk := range tasks {
		if tk.Status != task.StatusCompleted {
			t.Errorf("task %s status = %s", tk.ID, tk.Status)
		}
	}

	collabs, err := testPGStore.ListCollaborations(ctx)
	if err != nil {
		t.Fatalf("list collaborations: %v", err)
	}
	if len(collabs) != 1 || collabs[0].Results[writer.ID].Status != task.StatusCompleted {
		t.Fatalf("collaboration not persisted: %+v", collabs)
	}
}

func TestRedisCommunicationLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rl, err := comms.DialRedis(ctx, testRedisURL, testLogger)
	if err != nil {
		t.Fatalf("dial redis: %v", err)
	}
	defer rl.Close()
	svc := comms.NewService(rl, testLogger)

	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(ctx, "a", "b", fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	hist, err := svc.GetHistory(ctx, "a", "b")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 || hist[0].Payload != "msg-0" || hist[2].Payload != "msg-2" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestStaleAgentSnapshotIgnored(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &agent.Agent{
		ID:          uuid.New().String(),
		Name:        "versioned",
		Description: "ordered saves",
		Archetype:   agent.ArchetypeGeneral,
		Status:      agent.StatusActive,
		CreatedAt:   time.Now(),
		Version:     3,
	}
	a.Performance.TasksCompleted = 3
	if err := testPGStore.SaveAgent(ctx, a); err != nil {
		t.Fatalf("save v3: %v", err)
	}

	stale := *a
	stale.Version = 2
	stale.Performance.TasksCompleted = 2
	if err := testPGStore.SaveAgent(ctx, &stale); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	got, err := testPGStore.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Version != 3 || got.Performance.TasksCompleted != 3 {
		t.Fatalf("stale snapshot overwrote newer row: version=%d tasks=%d", got.Version, got.Performance.TasksCompleted)
	}
}
