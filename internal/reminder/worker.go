package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

const (
	leaderLockKey  = "reminder:leader"
	leaderLockTTL  = 2 * time.Minute
	DefaultSpec    = "*/5 * * * *"
	DefaultLead    = time.Hour
	sentMarkerTTL  = 48 * time.Hour
	sentMarkerBase = "reminder:sent:"
)

// Source lists the appointments that need a reminder.
type Source interface {
	UpcomingConfirmed(ctx context.Context, from, to time.Time) ([]appointment.AppointmentDetail, error)
	Now() time.Time
}

// Keys coordinates instances: one leader per run, one reminder per appointment.
type Keys interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Worker struct {
	log      *zap.Logger
	source   Source
	keys     Keys
	notifier appointment.Notifier
	spec     string
	lead     time.Duration

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewWorker(log *zap.Logger, source Source, keys Keys, notifier appointment.Notifier, spec string, lead time.Duration) *Worker {
	if spec == "" {
		spec = DefaultSpec
	}
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Worker{log: log, source: source, keys: keys, notifier: notifier, spec: spec, lead: lead}
}

// Start schedules the job. An invalid cron spec is an error.
func (w *Worker) Start(ctx context.Context) error {
	w.runCtx, w.cancel = context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(w.spec, func() { w.RunOnce(w.runCtx) }); err != nil {
		w.cancel()
		return fmt.Errorf("schedule reminders with %q: %w", w.spec, err)
	}
	c.Start()
	w.cron = c
	w.log.Info("reminder worker started", zap.String("spec", w.spec), zap.Duration("lead", w.lead))
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// RunOnce sends the reminders due now and returns how many were sent.
func (w *Worker) RunOnce(ctx context.Context) int {
	token, acquired, err := w.keys.TryLock(ctx, leaderLockKey, leaderLockTTL)
	if err != nil {
		w.log.Warn("reminder: leader lock attempt failed", zap.Error(err))
		return 0
	}
	if !acquired {
		w.log.Info("reminder: leader lock not acquired; another instance is running")
		return 0
	}
	defer func() {
		if err := w.keys.Unlock(context.WithoutCancel(ctx), leaderLockKey, token); err != nil {
			w.log.Warn("reminder: leader unlock failed", zap.Error(err))
		}
	}()

	now := w.source.Now().UTC()
	upcoming, err := w.source.UpcomingConfirmed(ctx, now, now.Add(w.lead))
	if err != nil {
		w.log.Warn("reminder: listing upcoming appointments failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, a := range upcoming {
		if ctx.Err() != nil {
			break
		}
		if a.Patient == nil {
			continue
		}

		marker := sentMarkerBase + a.ID.String()
		first, err := w.keys.MarkOnce(ctx, marker, sentMarkerTTL)
		if err != nil {
			w.log.Warn("reminder: dedupe marker failed", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		if err := w.notifier.Notify(ctx, reminderEvent(a)); err != nil {
			w.log.Warn("reminder: notification failed", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			// retried by the next run
			if err := w.keys.Forget(context.WithoutCancel(ctx), marker); err != nil {
				w.log.Warn("reminder: dropping dedupe marker failed", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		w.log.Info("reminder: run finished", zap.Int("candidates", len(upcoming)), zap.Int("sent", sent))
	}
	return sent
}

func reminderEvent(a appointment.AppointmentDetail) appointment.NotificationEvent {
	with := "your doctor"
	if a.Doctor != nil {
		with = a.Doctor.DisplayName()
	}
	id := a.ID
	return appointment.NotificationEvent{
		UserID:               a.Patient.UserID,
		Title:                "Upcoming appointment",
		Message:              fmt.Sprintf("Reminder: your appointment with %s is on %s at %s.", with, appointment.FormatDate(a.Date), a.Time),
		Type:                 appointment.NotificationReminder,
		RelatedAppointmentID: &id,
	}
}
