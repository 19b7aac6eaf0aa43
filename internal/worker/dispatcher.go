// Package worker contains the background dispatcher that turns due step
// states into delivered email.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/logger"
	"github.com/ignite/sequencer/internal/service/sequence"
	"github.com/ignite/sequencer/internal/service/template"
	"github.com/ignite/sequencer/internal/tracking"
	"github.com/ignite/sequencer/internal/transport"
)

// SuppressionChecker is the dispatcher's view of the suppression list.
type SuppressionChecker interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// Recorder appends compliance journal entries.
type Recorder interface {
	Record(ctx context.Context, action domain.JournalAction, email, details, actor string) error
}

// EventSink appends delivery events.
type EventSink interface {
	Record(ctx context.Context, e *domain.Event) error
}

// Locker guards a dispatch pass when multiple replicas run. The database
// claim stays authoritative; the lock only cuts contention.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// DispatcherConfig holds the dispatcher's tunables and sender identity.
type DispatcherConfig struct {
	FromName     string
	FromEmail    string
	ReplyTo      string
	BaseURL      string
	BatchSize    int
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// Dispatcher claims due steps and sends them. Multiple dispatchers may
// run concurrently against the same database; the claim guarantees each
// due step is sent at most once.
type Dispatcher struct {
	repo         sequence.Repository
	suppressions SuppressionChecker
	journal      Recorder
	events       EventSink
	registry     *template.Registry
	renderer     *template.Renderer
	signer       *tracking.Signer
	sender       transport.Transport
	lock         Locker
	cfg          DispatcherConfig

	workerID string

	totalSent    int64
	totalSkipped int64
	totalFailed  int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. lock may be nil for single-replica
// deployments.
func NewDispatcher(
	repo sequence.Repository,
	suppressions SuppressionChecker,
	journal Recorder,
	events EventSink,
	registry *template.Registry,
	renderer *template.Renderer,
	signer *tracking.Signer,
	sender transport.Transport,
	lock Locker,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		repo:         repo,
		suppressions: suppressions,
		journal:      journal,
		events:       events,
		registry:     registry,
		renderer:     renderer,
		signer:       signer,
		sender:       sender,
		lock:         lock,
		cfg:          cfg,
		workerID:     "dispatcher-" + uuid.New().String()[:8],
	}
}

// Start launches the poll loop.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.loop(ctx)
	logger.Info("dispatcher started", "worker_id", d.workerID, "poll_interval", d.cfg.PollInterval.String())
}

// Stop halts the poll loop and waits for the in-flight pass to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	logger.Info("dispatcher stopped",
		"worker_id", d.workerID,
		"sent", fmt.Sprintf("%d", atomic.LoadInt64(&d.totalSent)),
		"skipped", fmt.Sprintf("%d", atomic.LoadInt64(&d.totalSkipped)),
		"failed", fmt.Sprintf("%d", atomic.LoadInt64(&d.totalFailed)),
	)
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RunPass(ctx); err != nil {
				logger.Error("dispatch pass failed", "worker_id", d.workerID, "error", err.Error())
			}
		}
	}
}

// RunPass claims one batch of due steps and processes it. Returns how
// many steps were claimed.
func (d *Dispatcher) RunPass(ctx context.Context) (int, error) {
	if d.lock != nil {
		ok, err := d.lock.Acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			return 0, nil
		}
		defer d.lock.Release(ctx)
	}

	claimed, err := d.repo.ClaimDueSteps(ctx, d.workerID, time.Now().UTC(), d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due steps: %w", err)
	}

	// One status fetch per sequence per pass.
	statuses := make(map[string]domain.SequenceStatus)
	for _, step := range claimed {
		d.process(ctx, step, statuses)
	}
	return len(claimed), nil
}

func (d *Dispatcher) process(ctx context.Context, step sequence.ClaimedStep, statuses map[string]domain.SequenceStatus) {
	status, ok := statuses[step.SequenceID]
	if !ok {
		seq, err := d.repo.GetSequence(ctx, step.SequenceID)
		if err != nil {
			// Can't tell whether the sequence is still live: release the
			// claim and let a later pass decide.
			d.release(ctx, step)
			return
		}
		status = seq.Status
		statuses[step.SequenceID] = status
	}

	// A stop between the claim query and here still wins.
	if status == domain.SequenceStopped {
		d.complete(ctx, step, domain.StepCancelled, "", "sequence stopped")
		return
	}

	// Authoritative suppression check, fail-closed: an unreachable list
	// releases the claim instead of sending.
	suppressed, err := d.suppressions.IsSuppressed(ctx, step.Email)
	if err != nil {
		logger.Warn("suppression check failed, releasing claim", "email", step.Email, "error", err.Error())
		d.release(ctx, step)
		return
	}
	if suppressed {
		atomic.AddInt64(&d.totalSkipped, 1)
		d.complete(ctx, step, domain.StepSkippedSuppressed, "", "")
		d.recordEvent(ctx, step, domain.EventSkippedSuppressed, "", "")
		details := fmt.Sprintf("dispatch gate: step %d suppressed before send", step.Step)
		if err := d.journal.Record(ctx, domain.ActionSkipSend, step.Email, details, d.workerID); err != nil {
			logger.Error("journal skip_send failed", "email", step.Email, "error", err.Error())
		}
		return
	}

	tpl, err := d.registry.Resolve(step.Step)
	if err != nil {
		d.fail(ctx, step, err)
		return
	}

	unsubURL := d.signer.URL(d.cfg.BaseURL, tracking.Token{
		Email:      step.Email,
		SequenceID: step.SequenceID,
		Step:       step.Step,
	})
	rendered, err := d.renderer.Render(tpl, step.FirstName, step.Email, unsubURL)
	if err != nil {
		d.fail(ctx, step, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	result, err := d.sender.Send(sendCtx, &transport.Message{
		SequenceID:  step.SequenceID,
		Email:       step.Email,
		Step:        step.Step,
		FromName:    d.cfg.FromName,
		FromEmail:   d.cfg.FromEmail,
		ReplyTo:     d.cfg.ReplyTo,
		Subject:     rendered.Subject,
		Body:        rendered.Body,
		TrackingTag: tpl.TrackingTag,
	})
	if err != nil {
		d.fail(ctx, step, err)
		return
	}

	atomic.AddInt64(&d.totalSent, 1)
	d.complete(ctx, step, domain.StepSent, result.MessageID, "")
	d.recordEvent(ctx, step, domain.EventSent, result.MessageID, "")
	logger.Info("step sent", "email", step.Email, "sequence_id", step.SequenceID, "step", fmt.Sprintf("%d", step.Step))
}

func (d *Dispatcher) fail(ctx context.Context, step sequence.ClaimedStep, cause error) {
	atomic.AddInt64(&d.totalFailed, 1)
	d.complete(ctx, step, domain.StepError, "", cause.Error())
	d.recordEvent(ctx, step, domain.EventError, "", cause.Error())
	logger.Error("step send failed", "email", step.Email, "step", fmt.Sprintf("%d", step.Step), "error", cause.Error())
}

func (d *Dispatcher) complete(ctx context.Context, step sequence.ClaimedStep, status domain.StepStatus, messageID, lastError string) {
	if err := d.repo.CompleteStep(ctx, step.SequenceID, step.Email, step.Step, status, messageID, lastError); err != nil {
		logger.Error("complete step failed", "email", step.Email, "step", fmt.Sprintf("%d", step.Step), "error", err.Error())
	}
}

func (d *Dispatcher) release(ctx context.Context, step sequence.ClaimedStep) {
	if err := d.repo.ReleaseStep(ctx, step.SequenceID, step.Email, step.Step); err != nil {
		logger.Error("release step failed", "email", step.Email, "step", fmt.Sprintf("%d", step.Step), "error", err.Error())
	}
}

func (d *Dispatcher) recordEvent(ctx context.Context, step sequence.ClaimedStep, typ domain.EventType, messageID, details string) {
	err := d.events.Record(ctx, &domain.Event{
		SequenceID: step.SequenceID,
		Email:      step.Email,
		Step:       step.Step,
		Type:       typ,
		MessageID:  messageID,
		Details:    details,
	})
	if err != nil {
		logger.Error("record event failed", "email", step.Email, "error", err.Error())
	}
}

// Stats returns cumulative dispatch counters.
func (d *Dispatcher) Stats() (sent, skipped, failed int64) {
	return atomic.LoadInt64(&d.totalSent), atomic.LoadInt64(&d.totalSkipped), atomic.LoadInt64(&d.totalFailed)
}
