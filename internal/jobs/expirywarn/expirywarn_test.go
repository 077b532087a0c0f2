package expirywarn

import (
	"context"
	"strings"
	"testing"
	"time"

	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
)

func TestRunWarnsLinkedUsersOnce(t *testing.T) {
	now := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	chat := int64(900)

	states := &fakeStates{records: []pgrepo.CreditStateRecord{
		{UserID: 1, PlanKey: "starter", CreditsRemaining: 45, CreditsResetDate: now.Add(3 * 24 * time.Hour)},
		{UserID: 2, PlanKey: "pro", CreditsRemaining: 200, CreditsResetDate: now.Add(5 * 24 * time.Hour)},
	}}
	users := &fakeUsers{records: map[int64]pgrepo.UserRecord{
		1: {ID: 1, NotifyChatID: &chat},
		2: {ID: 2}, // never linked a chat
	}}
	sink := &fakeNotifier{}

	job := New(states, users, sink, 200, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run warn job: %v", err)
	}

	if len(sink.sent) != 1 {
		t.Fatalf("expected one warning, got %d", len(sink.sent))
	}
	if sink.sent[0].chatID != chat {
		t.Fatalf("warning went to chat %d", sink.sent[0].chatID)
	}
	if !strings.Contains(sink.sent[0].text, "45") || !strings.Contains(sink.sent[0].text, "3 days") {
		t.Fatalf("unexpected warning text: %q", sink.sent[0].text)
	}

	// A second sweep in the same cycle stays quiet.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("repeat sweep should not re-warn, got %d messages", len(sink.sent))
	}
}

func TestRunWarnsAgainAfterNewCycle(t *testing.T) {
	now := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	chat := int64(900)

	states := &fakeStates{records: []pgrepo.CreditStateRecord{
		{UserID: 1, CreditsRemaining: 45, CreditsResetDate: now.Add(2 * 24 * time.Hour)},
	}}
	users := &fakeUsers{records: map[int64]pgrepo.UserRecord{
		1: {ID: 1, NotifyChatID: &chat},
	}}
	sink := &fakeNotifier{}

	job := New(states, users, sink, 200, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run warn job: %v", err)
	}

	// Next month, new reset date approaching again.
	later := now.AddDate(0, 1, 0)
	states.records[0].CreditsResetDate = later.Add(2 * 24 * time.Hour)
	states.records[0].CreditsRemaining = 12
	job.now = func() time.Time { return later }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run warn job next cycle: %v", err)
	}

	if len(sink.sent) != 2 {
		t.Fatalf("expected a warning per cycle, got %d", len(sink.sent))
	}
}

func TestRunWithoutDependenciesIsNoop(t *testing.T) {
	job := New(nil, nil, nil, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run empty job: %v", err)
	}
}

type fakeStates struct {
	records []pgrepo.CreditStateRecord
}

func (f *fakeStates) ListExpiringSoon(_ context.Context, now time.Time, within time.Duration, limit int) ([]pgrepo.CreditStateRecord, error) {
	var out []pgrepo.CreditStateRecord
	for _, rec := range f.records {
		if rec.CreditsResetDate.After(now) && !rec.CreditsResetDate.After(now.Add(within)) && rec.CreditsRemaining > 0 {
			out = append(out, rec)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeUsers struct {
	records map[int64]pgrepo.UserRecord
}

func (f *fakeUsers) GetByID(_ context.Context, userID int64) (pgrepo.UserRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) SendText(_ context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}
