// Package notify implements outbound WhatsApp notifications via a WAHA
// gateway.
//
// This file contains the Dispatcher, a background worker that drains the
// notifications outbox. Status updates only enqueue a row; delivery happens
// here, with bounded attempts and a retry backoff, so a gateway outage can
// never fail, block, or roll back the owning status update. Enqueued
// notifications are also not silently lost the way an inline
// fire-and-forget call would lose them.
package notify

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

var (
	// notifSent counts successfully delivered notifications.
	notifSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of WhatsApp notifications delivered.",
	})

	// notifFailed counts delivery attempts that failed (including ones that
	// will be retried).
	notifFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of failed WhatsApp delivery attempts.",
	})
)

func init() {
	prometheus.MustRegister(notifSent, notifFailed)
}

// Dispatcher periodically drains the notifications outbox and delivers
// pending rows through the configured Sender.
type Dispatcher struct {
	DB     *gorm.DB
	Sender Sender

	// Interval between drain passes. Defaults to 30s.
	Interval time.Duration
	// BatchSize caps rows per pass. Defaults to 25.
	BatchSize int
	// MaxAttempts before a row is marked dead. Defaults to 3.
	MaxAttempts int
}

// NewDispatcher constructs a Dispatcher with sane defaults.
func NewDispatcher(db *gorm.DB, sender Sender) *Dispatcher {
	return &Dispatcher{
		DB:          db,
		Sender:      sender,
		Interval:    30 * time.Second,
		BatchSize:   25,
		MaxAttempts: 3,
	}
}

// Run blocks, draining the outbox every Interval until ctx is cancelled.
// Intended to be launched as a goroutine from main.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("notification drain failed")
			}
		}
	}
}

// RunOnce performs a single drain pass. Delivery failures are recorded on
// the row (failed, then dead after MaxAttempts) and never abort the pass.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 25
	}
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	pending, err := repo.PendingNotifications(ctx, d.DB, batch)
	if err != nil {
		return err
	}

	for _, n := range pending {
		res := d.Sender.SendText(ctx, n.Phone, n.Message)
		if !res.OK {
			notifFailed.Inc()
			log.Warn().
				Str("notification_id", n.ID).
				Str("request_id", n.RequestID).
				Int("attempts", n.Attempts+1).
				Str("reason", res.Err).
				Msg("notification delivery failed")
			if err := repo.MarkNotificationFailed(ctx, d.DB, n.ID, res.Err, maxAttempts); err != nil {
				return err
			}
			continue
		}

		notifSent.Inc()
		log.Info().
			Str("notification_id", n.ID).
			Str("request_id", n.RequestID).
			Str("message_id", res.MessageID).
			Msg("notification delivered")
		if err := repo.MarkNotificationSent(ctx, d.DB, n.ID); err != nil {
			return err
		}
	}
	return nil
}
