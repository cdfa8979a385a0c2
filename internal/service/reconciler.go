package service

import (
	"context"
	"sync"
	"time"

	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/models"
	"airfilter_hub/internal/repository"
)

// ProcessedEvent actions. At most one "prompt shown" row may ever exist per
// event id; the reconciler queries before acting, every cycle, to enforce it.
const (
	actionPromptShown     = "prompt shown"
	actionAccepted        = "accepted"
	actionDeclinedInitial = "declined initial prompt"
	actionDeferredShort   = "deferred 20 minutes"
	actionDeferredLong    = "deferred 60 minutes"
	actionDeclined        = "declined"
	actionAcceptedLate    = "accepted-after-disclaimer"
)

// ReconcilerService merges the automatic recommendation, the latest manual
// decision and pending reminders into the single authoritative relay state,
// and owns the prompt workflow the dashboard renders.
type ReconcilerService struct {
	decisions repository.DecisionRepo
	processed repository.ProcessedEventRepo
	reminders *ReminderScheduler
	events    repository.ControlEventRepo
	cfg       Config
	log       *logger.Logger

	mu      sync.Mutex
	prompts models.PromptFlags
}

func NewReconcilerService(
	decisions repository.DecisionRepo,
	processed repository.ProcessedEventRepo,
	reminders *ReminderScheduler,
	events repository.ControlEventRepo,
	cfg Config,
	log *logger.Logger,
) *ReconcilerService {
	return &ReconcilerService{
		decisions: decisions,
		processed: processed,
		reminders: reminders,
		events:    events,
		cfg:       cfg,
		log:       log,
	}
}

var _ Reconciler = (*ReconcilerService)(nil)

// Tick runs one reconciliation cycle: a due reminder takes precedence over
// a fresh event, and a fresh event opens the decision prompt at most once.
func (s *ReconcilerService) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	rem, due, err := s.reminders.PollDue(ctx, now)
	if err != nil {
		return err
	}
	if due && !s.prompts.Main && !s.prompts.ReminderCancelled {
		return s.fireReminder(ctx, rem)
	}

	eventID, on, err := s.decisions.CurrentOnEvent(ctx)
	if err != nil {
		return err
	}
	if !on || s.prompts.Main || s.prompts.ReminderCancelled {
		return nil
	}

	handled, err := s.processed.IsProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	if err := s.processed.Mark(ctx, eventID, actionPromptShown, now); err != nil {
		return err
	}
	s.prompts.Main = true
	s.prompts.EventID = eventID
	s.audit(ctx, EventPrompt, "Decision prompt opened", eventID)
	return nil
}

// fireReminder consumes a due reminder: re-prompt if the automatic state is
// still ON, otherwise tell the user the condition resolved itself.
func (s *ReconcilerService) fireReminder(ctx context.Context, rem models.Reminder) error {
	d, found, err := s.decisions.Latest(ctx, models.SourceAutomatic)
	if err != nil {
		// Leave the reminder in place; next cycle retries.
		return err
	}

	if err := s.reminders.Cancel(ctx, rem.ID); err != nil {
		return err
	}

	if found && d.State == models.RelayOn {
		s.prompts.Main = true
		s.prompts.EventID = rem.EventID
		s.audit(ctx, EventPrompt, "Reminder re-opened decision prompt", rem.EventID)
	} else {
		s.prompts.ReminderCancelled = true
		s.audit(ctx, EventPrompt, "Reminder cancelled, air recovered", rem.EventID)
	}
	return nil
}

// Run reconciles at the given tick until ctx is cancelled.
func (s *ReconcilerService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout(tick))
			err := s.Tick(cctx)
			cancel()
			if err != nil {
				s.log.Errorw("reconcile cycle failed", "err", err)
			}
		}
	}
}

// Accept: the user agreed to run the filter.
func (s *ReconcilerService) Accept(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.decisions.Append(ctx, models.SourceManual, models.RelayOn, time.Now().UTC()); err != nil {
		return err
	}
	id := s.eventIDForAction(ctx)
	s.mark(ctx, id, actionAccepted)
	s.closeAll()
	s.audit(ctx, EventUserAction, "User enabled the filter", id)
	return nil
}

// Decline moves the user to the disclaimer step; no manual decision yet.
func (s *ReconcilerService) Decline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.eventIDForAction(ctx)
	s.mark(ctx, id, actionDeclinedInitial)
	s.prompts.Main = false
	s.prompts.Disclaimer = true
	s.audit(ctx, EventUserAction, "User declined on first prompt", id)
	return nil
}

func (s *ReconcilerService) DeferShort(ctx context.Context) error {
	return s.deferDecision(ctx, models.ReminderShort, actionDeferredShort)
}

func (s *ReconcilerService) DeferLong(ctx context.Context) error {
	return s.deferDecision(ctx, models.ReminderLong, actionDeferredLong)
}

func (s *ReconcilerService) deferDecision(ctx context.Context, kind models.ReminderKind, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.eventIDForAction(ctx)
	if err := s.reminders.Schedule(ctx, id, kind); err != nil {
		return err
	}
	if _, err := s.decisions.Append(ctx, models.SourceManual, models.RelayOff, time.Now().UTC()); err != nil {
		return err
	}
	s.mark(ctx, id, action)
	s.closeAll()
	s.audit(ctx, EventUserAction, "User deferred the decision", id)
	return nil
}

// ConfirmDecline: the user stands by keeping the filter off.
func (s *ReconcilerService) ConfirmDecline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.decisions.Append(ctx, models.SourceManual, models.RelayOff, time.Now().UTC()); err != nil {
		return err
	}
	id := s.eventIDForAction(ctx)
	s.mark(ctx, id, actionDeclined)
	s.prompts.Disclaimer = false
	s.prompts.Caution = true
	s.audit(ctx, EventUserAction, "User kept the filter off on disclaimer", id)
	return nil
}

// ReverseDecline: the user changed their mind on the disclaimer.
func (s *ReconcilerService) ReverseDecline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.decisions.Append(ctx, models.SourceManual, models.RelayOn, time.Now().UTC()); err != nil {
		return err
	}
	id := s.eventIDForAction(ctx)
	s.mark(ctx, id, actionAcceptedLate)
	s.prompts.Disclaimer = false
	s.audit(ctx, EventUserAction, "User enabled the filter on disclaimer", id)
	return nil
}

func (s *ReconcilerService) CloseCaution(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts.Caution = false
}

func (s *ReconcilerService) CloseReminderNotice(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts.ReminderCancelled = false
}

// Prompts returns a copy of the current dialog flags.
func (s *ReconcilerService) Prompts() models.PromptFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts
}

// Authoritative derives the relay command: ON only when the latest manual
// AND the latest automatic decision agree on ON. A failed read yields
// (OFF, false) so callers fail closed without mistaking it for a real OFF.
func (s *ReconcilerService) Authoritative(ctx context.Context) (models.RelayState, bool) {
	return deriveAuthoritative(ctx, s.decisions)
}

func deriveAuthoritative(ctx context.Context, decisions repository.DecisionRepo) (models.RelayState, bool) {
	auto, okA, err := decisions.Latest(ctx, models.SourceAutomatic)
	if err != nil {
		return models.RelayOff, false
	}
	man, okM, err := decisions.Latest(ctx, models.SourceManual)
	if err != nil {
		return models.RelayOff, false
	}
	if okA && okM && auto.State == models.RelayOn && man.State == models.RelayOn {
		return models.RelayOn, true
	}
	return models.RelayOff, true
}

// eventIDForAction resolves the event the user is responding to: the one
// that opened the prompt, else the head of the current ON run.
func (s *ReconcilerService) eventIDForAction(ctx context.Context) int64 {
	if s.prompts.EventID != 0 {
		return s.prompts.EventID
	}
	id, ok, err := s.decisions.CurrentOnEvent(ctx)
	if err != nil || !ok {
		return 0
	}
	return id
}

func (s *ReconcilerService) mark(ctx context.Context, eventID int64, action string) {
	if eventID == 0 {
		return
	}
	if err := s.processed.Mark(ctx, eventID, action, time.Now().UTC()); err != nil {
		s.log.Errorw("processed event append failed", "event_id", eventID, "action", action, "err", err)
	}
}

func (s *ReconcilerService) closeAll() {
	s.prompts.Main = false
	s.prompts.Disclaimer = false
	s.prompts.Caution = false
	s.prompts.ReminderCancelled = false
}

func (s *ReconcilerService) audit(ctx context.Context, typ, msg string, eventID int64) {
	err := s.events.Append(ctx, controlEvent(typ, msg, map[string]any{"event_id": eventID}))
	if err != nil {
		s.log.Errorw("reconciler audit append failed", "err", err)
	}
}
