package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	testOwner    = Actor{UserID: "owner-1", Initials: "OW"}
	testMember   = Actor{UserID: "member-1", Initials: "ME"}
	testStranger = Actor{UserID: "stranger-1", Initials: "ST"}
)

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("id-%03d", p.next), nil
}

type countingCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingCounter) IncrementCompletedGames(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[userID]++
	return nil
}

func (c *countingCounter) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID]
}

type recordedChange struct {
	sessionID string
	kind      ChangeKind
	recordIDs []string
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []recordedChange
}

func (n *recordingNotifier) SessionChanged(sessionID string, kind ChangeKind, recordIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, recordedChange{sessionID: sessionID, kind: kind, recordIDs: recordIDs})
}

func (n *recordingNotifier) snapshot() []recordedChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedChange(nil), n.changes...)
}

type testHarness struct {
	service  *Service
	db       *gorm.DB
	counter  *countingCounter
	notifier *recordingNotifier
}

func newTestHarness(t *testing.T) testHarness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&GameSession{}, &SessionMember{}, &PlayerTransaction{}, &DealerDown{}, &Expense{}, &TillCount{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clockValue := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	counter := &countingCounter{}
	notifier := &recordingNotifier{}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			clockValue = clockValue.Add(time.Minute)
			return clockValue
		},
		IDProvider: &sequentialIDs{},
		Counter:    counter,
		Notifier:   notifier,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return testHarness{service: service, db: db, counter: counter, notifier: notifier}
}

func (h testHarness) startSession(t *testing.T, name string) GameSession {
	t.Helper()
	session, err := h.service.StartSession(context.Background(), testOwner, SessionInput{Name: name, TableName: "Main"})
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	return session
}

func (h testHarness) addTransaction(t *testing.T, sessionID string, input TransactionInput) PlayerTransaction {
	t.Helper()
	transaction, err := h.service.CreateTransaction(context.Background(), testOwner, sessionID, input)
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	return transaction
}

func (h testHarness) addDealerDown(t *testing.T, sessionID, dealer, tips string) DealerDown {
	t.Helper()
	down, err := h.service.CreateDealerDown(context.Background(), testOwner, sessionID, DealerDownInput{
		DealerName: dealer,
		Tips:       mustDecimal(t, tips),
		Rake:       mustDecimal(t, "5"),
	})
	if err != nil {
		t.Fatalf("create dealer down failed: %v", err)
	}
	return down
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return parsed
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("expected %s to be %s, got %s", label, want, got.String())
	}
}

func assertServiceCode(t *testing.T, err error, sentinel error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Code() != code {
		t.Fatalf("expected code %q, got %q", code, serviceErr.Code())
	}
}
