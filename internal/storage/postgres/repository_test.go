//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"beacon/internal/domain"
	"beacon/pkg/e"
)

var (
	testPool *pgxpool.Pool
	tc       testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	user := "postgres"
	pass := "postgres"
	db := "postgres"

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": pass,
			"POSTGRES_DB":       db,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(90 * time.Second),
	}

	var err error
	tc, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Println("cannot start container:", err)
		os.Exit(1)
	}

	host, _ := tc.Host(ctx)
	mappedPort, _ := tc.MappedPort(ctx, "5432/tcp")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, mappedPort.Port(), db)

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Println("pgxpool.New:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	if err := testPool.Ping(ctx); err != nil {
		fmt.Println("pool.Ping:", err)
		testPool.Close()
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	if err := EnsureSchema(ctx, testPool); err != nil {
		fmt.Println("EnsureSchema:", err)
		testPool.Close()
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	_ = tc.Terminate(ctx)
	os.Exit(code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE incidents, chat_messages`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func mustCreate(t *testing.T, repo *IncidentRepo, typ domain.IncidentType) *domain.Incident {
	t.Helper()
	inc, err := repo.Create(context.Background(), &domain.Incident{
		Type:        typ,
		Lat:         10,
		Lng:         20,
		Description: "test incident",
		Status:      domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inc
}

func TestIncidentRepo_Create_RoundTrip(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	inc, err := repo.Create(context.Background(), &domain.Incident{
		Type:        domain.IncidentFlood,
		Lat:         49.281441,
		Lng:         -123.055913,
		Description: "水 rising fast",
		Status:      domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inc.ID == uuid.Nil {
		t.Fatalf("expected ID set")
	}
	if inc.ReportedAt.IsZero() || inc.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps set")
	}

	got, err := repo.Get(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Lat != inc.Lat || got.Lng != inc.Lng {
		t.Fatalf("lat/lng mismatch got=(%v,%v) want=(%v,%v)", got.Lat, got.Lng, inc.Lat, inc.Lng)
	}
	if got.Description != "水 rising fast" {
		t.Fatalf("description mismatch: %q", got.Description)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected pending got=%s", got.Status)
	}
}

func TestIncidentRepo_Get_NotFound(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestIncidentRepo_List_KeysetPagination(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	for i := 0; i < 5; i++ {
		mustCreate(t, repo, domain.IncidentFlood)
	}

	seen := make(map[uuid.UUID]bool)
	cursor := domain.Cursor{}
	pages := 0
	for {
		got, next, err := repo.List(context.Background(), domain.IncidentFilter{}, cursor, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].ReportedAt.After(got[i-1].ReportedAt) {
				t.Fatalf("expected reported_at DESC order")
			}
		}
		for _, inc := range got {
			if seen[inc.ID] {
				t.Fatalf("incident %s returned twice", inc.ID)
			}
			seen[inc.ID] = true
		}
		pages++
		if pages > 10 {
			t.Fatalf("pagination did not terminate")
		}
		if next.IsZero() {
			break
		}
		cursor = next
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 unique incidents, got %d", len(seen))
	}
}

func TestIncidentRepo_List_Filters(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	mustCreate(t, repo, domain.IncidentFlood)
	mustCreate(t, repo, domain.IncidentFlood)
	fire := mustCreate(t, repo, domain.IncidentFire)

	if _, err := repo.UpdateStatus(context.Background(), fire.ID, domain.StatusResolved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	byType, _, err := repo.List(context.Background(), domain.IncidentFilter{Type: domain.IncidentFire}, domain.Cursor{}, 20)
	if err != nil {
		t.Fatalf("List by type: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != fire.ID {
		t.Fatalf("expected only the fire incident, got %d rows", len(byType))
	}

	byStatus, _, err := repo.List(context.Background(), domain.IncidentFilter{Status: domain.StatusPending}, domain.Cursor{}, 20)
	if err != nil {
		t.Fatalf("List by status: %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("expected 2 pending incidents, got %d", len(byStatus))
	}
}

func TestIncidentRepo_UpdateStatus_Transitions(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	inc := mustCreate(t, repo, domain.IncidentMedical)

	got, err := repo.UpdateStatus(context.Background(), inc.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus to in_progress: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress got=%s", got.Status)
	}

	if _, err := repo.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved); err != nil {
		t.Fatalf("UpdateStatus to resolved: %v", err)
	}

	_, err = repo.UpdateStatus(context.Background(), inc.ID, domain.StatusPending)
	if !errors.Is(err, e.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestIncidentRepo_UpdateStatus_PendingToResolvedDirect(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	inc := mustCreate(t, repo, domain.IncidentOther)

	got, err := repo.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != domain.StatusResolved {
		t.Fatalf("expected resolved got=%s", got.Status)
	}
}

func TestIncidentRepo_UpdateStatus_NotFound(t *testing.T) {
	truncateAll(t)
	repo := NewIncidentRepo(testPool, testLogger())

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), domain.StatusResolved)
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestChatRepo_SaveAndListRecent(t *testing.T) {
	truncateAll(t)
	repo := NewChatRepo(testPool, testLogger())

	for i := 0; i < 3; i++ {
		msg, err := repo.Save(context.Background(), &domain.ChatMessage{
			Sender: "ops",
			Body:   fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if msg.ID == uuid.Nil || msg.SentAt.IsZero() {
			t.Fatalf("expected identity and sent_at set: %+v", msg)
		}
	}

	msgs, err := repo.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages got=%d", len(msgs))
	}
	if msgs[0].Body != "message 1" || msgs[1].Body != "message 2" {
		t.Fatalf("expected most recent messages oldest-first, got %q %q", msgs[0].Body, msgs[1].Body)
	}
}

func TestStatsRepo_IncidentStats(t *testing.T) {
	truncateAll(t)
	incidents := NewIncidentRepo(testPool, testLogger())
	stats := NewStats(testPool, testLogger())

	mustCreate(t, incidents, domain.IncidentFlood)
	mustCreate(t, incidents, domain.IncidentFlood)
	fire := mustCreate(t, incidents, domain.IncidentFire)
	if _, err := incidents.UpdateStatus(context.Background(), fire.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := stats.IncidentStats(context.Background(), 60)
	if err != nil {
		t.Fatalf("IncidentStats: %v", err)
	}
	if got.Total != 3 {
		t.Fatalf("expected total=3 got=%d", got.Total)
	}
	if got.ByType[string(domain.IncidentFlood)] != 2 {
		t.Fatalf("expected 2 floods got=%d", got.ByType[string(domain.IncidentFlood)])
	}
	if got.ByStatus[string(domain.StatusInProgress)] != 1 {
		t.Fatalf("expected 1 in_progress got=%d", got.ByStatus[string(domain.StatusInProgress)])
	}
}
