package service

import (
	"context"
	"testing"
	"time"

	"airfilter_hub/internal/models"
)

type reconcilerFixture struct {
	decisions *fakeDecisionRepo
	processed *fakeProcessedRepo
	reminders *fakeReminderRepo
	events    *fakeControlEventRepo
	svc       *ReconcilerService
}

func newReconcilerFixture() *reconcilerFixture {
	cfg := DefaultConfig()
	f := &reconcilerFixture{
		decisions: &fakeDecisionRepo{},
		processed: &fakeProcessedRepo{},
		reminders: &fakeReminderRepo{},
		events:    &fakeControlEventRepo{},
	}
	scheduler := NewReminderScheduler(f.reminders, cfg)
	f.svc = NewReconcilerService(f.decisions, f.processed, scheduler, f.events, cfg, testLogger())
	return f
}

// appendAuto records an automatic decision and returns the row id.
func (f *reconcilerFixture) appendAuto(t *testing.T, state models.RelayState) int64 {
	t.Helper()
	id, err := f.decisions.Append(context.Background(), models.SourceAutomatic, state, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *reconcilerFixture) tick(t *testing.T) {
	t.Helper()
	if err := f.svc.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
}

func latestManual(t *testing.T, d *fakeDecisionRepo) models.RelayState {
	t.Helper()
	if len(d.manual) == 0 {
		t.Fatalf("expected a manual decision")
	}
	return d.manual[len(d.manual)-1].State
}

func TestTick_OpensPromptOnceForOneEvent(t *testing.T) {
	f := newReconcilerFixture()
	onID := f.appendAuto(t, models.RelayOn)

	f.tick(t)
	if p := f.svc.Prompts(); !p.Main || p.EventID != onID {
		t.Fatalf("expected main prompt for event %d, got %+v", onID, p)
	}

	// User dismisses nothing; repeated ticks with repeated ON rows must not
	// re-mark the event or reopen a second prompt record.
	f.svc.CloseCaution(context.Background()) // no-op, prompt stays
	f.appendAuto(t, models.RelayOn)
	f.tick(t)
	f.tick(t)

	if got := f.processed.actionsFor(onID); len(got) != 1 || got[0] != actionPromptShown {
		t.Fatalf("expected exactly one prompt-shown mark, got %v", got)
	}
}

func TestTick_SameEventNotReprocessedAfterClose(t *testing.T) {
	f := newReconcilerFixture()
	onID := f.appendAuto(t, models.RelayOn)

	f.tick(t)
	if err := f.svc.Accept(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := latestManual(t, f.decisions); got != models.RelayOn {
		t.Fatalf("accept must record manual ON, got %v", got)
	}

	// Still the same ON run: the prompt must not come back.
	f.appendAuto(t, models.RelayOn)
	f.tick(t)
	if p := f.svc.Prompts(); p.Main {
		t.Fatalf("prompt reopened for an already handled event: %+v", p)
	}

	// A full OFF->ON cycle is a new event and prompts again.
	f.appendAuto(t, models.RelayOff)
	newID := f.appendAuto(t, models.RelayOn)
	f.tick(t)
	if p := f.svc.Prompts(); !p.Main || p.EventID != newID {
		t.Fatalf("expected fresh prompt for event %d, got %+v", newID, p)
	}
	_ = onID
}

func TestDeclineFlow_DisclaimerThenCaution(t *testing.T) {
	f := newReconcilerFixture()
	onID := f.appendAuto(t, models.RelayOn)
	f.tick(t)

	if err := f.svc.Decline(context.Background()); err != nil {
		t.Fatal(err)
	}
	p := f.svc.Prompts()
	if p.Main || !p.Disclaimer {
		t.Fatalf("decline must swap main prompt for disclaimer, got %+v", p)
	}
	if len(f.decisions.manual) != 0 {
		t.Fatalf("initial decline must not record a manual decision yet")
	}

	if err := f.svc.ConfirmDecline(context.Background()); err != nil {
		t.Fatal(err)
	}
	p = f.svc.Prompts()
	if p.Disclaimer || !p.Caution {
		t.Fatalf("confirm must swap disclaimer for caution, got %+v", p)
	}
	if got := latestManual(t, f.decisions); got != models.RelayOff {
		t.Fatalf("confirmed decline must record manual OFF, got %v", got)
	}

	f.svc.CloseCaution(context.Background())
	if p := f.svc.Prompts(); p.Caution {
		t.Fatalf("caution must close on request")
	}

	actions := f.processed.actionsFor(onID)
	want := []string{actionPromptShown, actionDeclinedInitial, actionDeclined}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("actions = %v, want %v", actions, want)
		}
	}
}

func TestDeclineFlow_ReverseOnDisclaimer(t *testing.T) {
	f := newReconcilerFixture()
	f.appendAuto(t, models.RelayOn)
	f.tick(t)

	if err := f.svc.Decline(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ReverseDecline(context.Background()); err != nil {
		t.Fatal(err)
	}
	p := f.svc.Prompts()
	if p.Disclaimer || p.Caution {
		t.Fatalf("reversal must close the disclaimer without caution, got %+v", p)
	}
	if got := latestManual(t, f.decisions); got != models.RelayOn {
		t.Fatalf("reversal must record manual ON, got %v", got)
	}
}

func TestDefer_SchedulesReminderAndKeepsRelayOff(t *testing.T) {
	f := newReconcilerFixture()
	onID := f.appendAuto(t, models.RelayOn)
	f.tick(t)

	if err := f.svc.DeferShort(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := f.svc.Prompts(); p.Main || p.Disclaimer {
		t.Fatalf("defer must close all prompts, got %+v", p)
	}
	if got := latestManual(t, f.decisions); got != models.RelayOff {
		t.Fatalf("defer must record manual OFF, got %v", got)
	}
	if len(f.reminders.rows) != 1 {
		t.Fatalf("expected one scheduled reminder, got %d", len(f.reminders.rows))
	}
	rem := f.reminders.rows[0]
	if rem.EventID != onID || rem.Kind != models.ReminderShort {
		t.Fatalf("unexpected reminder: %+v", rem)
	}
}

func TestReminder_ReopensPromptWhileStillOn(t *testing.T) {
	f := newReconcilerFixture()
	onID := f.appendAuto(t, models.RelayOn)
	f.tick(t)
	if err := f.svc.DeferLong(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Force the reminder due now; the automatic state is still ON.
	f.reminders.rows[0].DueAt = time.Now().UTC().Add(-time.Minute)
	f.tick(t)

	p := f.svc.Prompts()
	if !p.Main || p.EventID != onID {
		t.Fatalf("due reminder with ON state must reopen the prompt, got %+v", p)
	}
	if len(f.reminders.rows) != 0 {
		t.Fatalf("fired reminder must be consumed")
	}
}

func TestReminder_CancelledNoticeWhenAirRecovered(t *testing.T) {
	f := newReconcilerFixture()
	f.appendAuto(t, models.RelayOn)
	f.tick(t)
	if err := f.svc.DeferShort(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Air recovered before the reminder fired.
	f.appendAuto(t, models.RelayOff)
	f.reminders.rows[0].DueAt = time.Now().UTC().Add(-time.Minute)
	f.tick(t)

	p := f.svc.Prompts()
	if p.Main || !p.ReminderCancelled {
		t.Fatalf("recovered air must yield the cancelled notice, got %+v", p)
	}
	if len(f.reminders.rows) != 0 {
		t.Fatalf("fired reminder must be consumed")
	}

	// The notice blocks new prompts until closed.
	newID := f.appendAuto(t, models.RelayOn)
	f.tick(t)
	if p := f.svc.Prompts(); p.Main {
		t.Fatalf("cancelled notice must defer new prompts, got %+v", p)
	}
	f.svc.CloseReminderNotice(context.Background())
	f.tick(t)
	if p := f.svc.Prompts(); !p.Main || p.EventID != newID {
		t.Fatalf("after closing the notice the new event must prompt, got %+v", p)
	}
}

func TestAuthoritative_RequiresBothOn(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		auto models.RelayState
		man  models.RelayState
		want models.RelayState
	}{
		{"both_on", models.RelayOn, models.RelayOn, models.RelayOn},
		{"auto_only", models.RelayOn, models.RelayOff, models.RelayOff},
		{"manual_only", models.RelayOff, models.RelayOn, models.RelayOff},
		{"both_off", models.RelayOff, models.RelayOff, models.RelayOff},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReconcilerFixture()
			f.appendAuto(t, tc.auto)
			if _, err := f.decisions.Append(ctx, models.SourceManual, tc.man, time.Now().UTC()); err != nil {
				t.Fatal(err)
			}
			got, known := f.svc.Authoritative(ctx)
			if !known {
				t.Fatalf("state must be known with a healthy store")
			}
			if got != tc.want {
				t.Fatalf("authoritative = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthoritative_StoreErrorIsUnknown(t *testing.T) {
	f := newReconcilerFixture()
	f.decisions.latestErr = errTest
	state, known := f.svc.Authoritative(context.Background())
	if known {
		t.Fatalf("failed read must not be treated as a known state")
	}
	if state != models.RelayOff {
		t.Fatalf("unknown state must fail closed to OFF, got %v", state)
	}
}
