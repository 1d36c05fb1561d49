// Package consumer projects identity events into directory profiles.
//
// Every handler runs its side effects and its ledger write in one
// transaction: a crash either committed nothing (the broker redelivers) or
// committed both (redelivery is detected and skipped). Handler errors
// propagate to the consumer group, which retries and eventually parks the
// record; nothing here acknowledges a failed event.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"hirelane/internal/directory/models"
	dirservice "hirelane/internal/directory/service"
	"hirelane/internal/platform/kafka/consumer"
	"hirelane/internal/reconcile/events"
	"hirelane/internal/reconcile/ledger"
	"hirelane/internal/reconcile/metrics"
	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
	"hirelane/pkg/platform/tx"
)

// DirectoryService is the slice of the directory service the projector uses.
type DirectoryService interface {
	CreateFromIdentity(ctx context.Context, cmd dirservice.CreateCommand) (*models.Profile, error)
	MarkEmailVerified(ctx context.Context, ref id.AccountRef) (*models.Profile, error)
	Deactivate(ctx context.Context, ref id.AccountRef, reason string) (*models.Profile, error)
	GetByAccountRef(ctx context.Context, ref id.AccountRef) (*models.Profile, error)
}

// Projector holds the handlers for all four identity topics.
type Projector struct {
	directory DirectoryService
	ledger    ledger.Store
	runner    tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(p *Projector)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Projector) {
		p.metrics = m
	}
}

// New constructs a Projector.
func New(directory DirectoryService, ledgerStore ledger.Store, runner tx.Runner, opts ...Option) *Projector {
	p := &Projector{
		directory: directory,
		ledger:    ledgerStore,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Router returns a topic router covering every inbound identity topic.
func (p *Projector) Router() *Router {
	r := NewRouter(p.logger)
	r.Register(events.TopicIdentityCreated, TopicHandlerFunc(p.HandleIdentityCreated))
	r.Register(events.TopicEmailVerified, TopicHandlerFunc(p.HandleEmailVerified))
	r.Register(events.TopicRoleChanged, TopicHandlerFunc(p.HandleRoleChanged))
	r.Register(events.TopicAccountDisabled, TopicHandlerFunc(p.HandleAccountDisabled))
	return r
}

// kindForRole maps an event role onto a profile variant. RoleUnknown (and
// anything the events package did not recognize) has no variant.
func kindForRole(role events.Role) (models.Kind, bool) {
	switch role {
	case events.RoleApplicant:
		return models.KindJobSeeker, true
	case events.RoleCompany:
		return models.KindCompany, true
	case events.RoleStaff:
		return models.KindStaffMember, true
	default:
		return "", false
	}
}

// HandleIdentityCreated creates the profile variant for a new account.
func (p *Projector) HandleIdentityCreated(ctx context.Context, msg *consumer.Message) error {
	start := time.Now()
	env, payload, err := events.DecodeIdentityCreated(msg.Value)
	if err != nil {
		return p.done(ctx, events.KindIdentityCreated, start, err)
	}

	err = p.applyOnce(ctx, env, msg.Attempts, func(ctx context.Context) (string, error) {
		kind, ok := kindForRole(payload.Role)
		if !ok {
			p.logger.WarnContext(ctx, "unknown role, no profile created",
				"event_id", env.EventID,
				"account_ref", payload.AccountRef,
				"role", payload.Role,
			)
			return "", nil
		}

		profile, err := p.directory.CreateFromIdentity(ctx, dirservice.CreateCommand{
			AccountRef: payload.AccountRef,
			Kind:       kind,
			Email:      payload.Email,
			FirstName:  payload.FirstName,
			LastName:   payload.LastName,
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				// A profile for this account exists under a different
				// eventId. The intent of the event is satisfied; record it
				// against the existing profile instead of retrying forever.
				existing, ferr := p.directory.GetByAccountRef(ctx, payload.AccountRef)
				if ferr != nil {
					return "", ferr
				}
				p.logger.WarnContext(ctx, "profile already exists for account",
					"event_id", env.EventID,
					"account_ref", payload.AccountRef,
					"profile_id", existing.ID,
				)
				return existing.ID.String(), nil
			}
			return "", err
		}
		return profile.ID.String(), nil
	})
	return p.done(ctx, events.KindIdentityCreated, start, err)
}

// HandleEmailVerified flips the verified flag on the account's profile.
// A missing profile is returned as an error on purpose: creation may still
// be in flight on another partition, and redelivery gives it time to land.
func (p *Projector) HandleEmailVerified(ctx context.Context, msg *consumer.Message) error {
	start := time.Now()
	env, payload, err := events.DecodeEmailVerified(msg.Value)
	if err != nil {
		return p.done(ctx, events.KindEmailVerified, start, err)
	}

	err = p.applyOnce(ctx, env, msg.Attempts, func(ctx context.Context) (string, error) {
		profile, err := p.directory.MarkEmailVerified(ctx, payload.AccountRef)
		if err != nil {
			return "", err
		}
		return profile.ID.String(), nil
	})
	return p.done(ctx, events.KindEmailVerified, start, err)
}

// HandleRoleChanged records the event without migrating the profile. What a
// role change should do to an existing profile is an open product question;
// until it is answered this stays a deliberate no-op rather than a guess.
func (p *Projector) HandleRoleChanged(ctx context.Context, msg *consumer.Message) error {
	start := time.Now()
	env, payload, err := events.DecodeRoleChanged(msg.Value)
	if err != nil {
		return p.done(ctx, events.KindRoleChanged, start, err)
	}

	err = p.applyOnce(ctx, env, msg.Attempts, func(ctx context.Context) (string, error) {
		p.logger.InfoContext(ctx, "role change observed, no migration performed",
			"event_id", env.EventID,
			"account_ref", payload.AccountRef,
			"old_role", payload.OldRole,
			"new_role", payload.NewRole,
		)
		return "", nil
	})
	return p.done(ctx, events.KindRoleChanged, start, err)
}

// HandleAccountDisabled deactivates the account's profile.
func (p *Projector) HandleAccountDisabled(ctx context.Context, msg *consumer.Message) error {
	start := time.Now()
	env, payload, err := events.DecodeAccountDisabled(msg.Value)
	if err != nil {
		return p.done(ctx, events.KindAccountDisabled, start, err)
	}

	err = p.applyOnce(ctx, env, msg.Attempts, func(ctx context.Context) (string, error) {
		profile, err := p.directory.Deactivate(ctx, payload.AccountRef, payload.Reason)
		if err != nil {
			return "", err
		}
		return profile.ID.String(), nil
	})
	return p.done(ctx, events.KindAccountDisabled, start, err)
}

// applyOnce wraps apply in the idempotency transaction: ledger check, side
// effects, ledger record, committed together. apply returns the entity id
// recorded on the ledger row.
func (p *Projector) applyOnce(ctx context.Context, env events.Envelope, attempts int, apply func(ctx context.Context) (string, error)) error {
	var duplicate bool
	err := p.runner.RunInTx(ctx, func(ctx context.Context) error {
		done, err := p.ledger.HasProcessed(ctx, env.EventID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstreamUnavailable, "ledger lookup failed")
		}
		if done {
			duplicate = true
			return nil
		}

		relatedID, err := apply(ctx)
		if err != nil {
			return err
		}

		return p.ledger.RecordProcessed(ctx, ledger.Record{
			EventID:         env.EventID,
			Kind:            env.Kind,
			RelatedEntityID: relatedID,
			Attempts:        attempts,
		})
	})
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost the ledger insert race; the rollback discarded this side of
		// the work and the winner's commit stands.
		duplicate = true
		err = nil
	}
	if err != nil {
		return err
	}

	if duplicate {
		p.logger.InfoContext(ctx, "event already processed, skipping",
			"event_id", env.EventID,
			"kind", env.Kind,
		)
		p.incrementDuplicate(string(env.Kind))
		return nil
	}

	p.incrementProcessed(string(env.Kind))
	return nil
}

func (p *Projector) done(ctx context.Context, kind events.Kind, start time.Time, err error) error {
	p.observeHandle(string(kind), start)
	if err != nil {
		p.incrementFailed(string(kind))
		p.logger.ErrorContext(ctx, "event handling failed",
			"kind", kind,
			"error", err,
		)
	}
	return err
}

// NewParkRecorder returns the consumer group's OnPark hook: it writes a
// FAILED ledger row for parked events so operators can query what needs
// manual replay. Best effort; a payload too malformed to carry an eventId is
// only visible on the dead-letter topic itself.
func NewParkRecorder(store ledger.Store, logger *slog.Logger, m *metrics.Metrics) func(ctx context.Context, msg *consumer.Message, cause error) {
	return func(ctx context.Context, msg *consumer.Message, cause error) {
		if m != nil {
			m.IncrementParked()
		}

		var w struct {
			EventID string `json:"eventId"`
			Kind    string `json:"kind"`
		}
		_ = json.Unmarshal(msg.Value, &w)

		eventID, err := id.ParseEventID(w.EventID)
		if err != nil {
			logger.ErrorContext(ctx, "parked record carries no usable eventId",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			return
		}

		rec := ledger.Record{
			EventID:   eventID,
			Kind:      events.Kind(w.Kind),
			Attempts:  msg.Attempts,
			LastError: cause.Error(),
		}
		if err := store.RecordFailed(ctx, rec); err != nil {
			logger.ErrorContext(ctx, "failed to record parked event",
				"event_id", eventID,
				"error", err,
			)
		}
	}
}

func (p *Projector) incrementProcessed(kind string) {
	if p.metrics != nil {
		p.metrics.IncrementProcessed(kind)
	}
}

func (p *Projector) incrementDuplicate(kind string) {
	if p.metrics != nil {
		p.metrics.IncrementDuplicate(kind)
	}
}

func (p *Projector) incrementFailed(kind string) {
	if p.metrics != nil {
		p.metrics.IncrementFailed(kind)
	}
}

func (p *Projector) observeHandle(kind string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveHandle(kind, start)
	}
}
