// Package validation ties the bounds checker, variance analyzer, repair
// engine and quality scorer to the record store, the update queue and the
// event hub.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"forecast-guard/internal/bounds"
	"forecast-guard/internal/domain"
	"forecast-guard/internal/events"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/quality"
	"forecast-guard/internal/queue"
	"forecast-guard/internal/repair"
	"forecast-guard/internal/storage"
	"forecast-guard/internal/variance"
)

// ErrNoActual is returned by AnalyzeByID when the record has no observed actual.
var ErrNoActual = errors.New("actual amount not set")

// Publisher receives validation events. *events.Hub implements it.
type Publisher interface {
	Publish(e events.Event)
}

// Options for creating a Service. Only Store is required.
type Options struct {
	Store storage.ForecastStore
	Runs  storage.ValidationRunStore // run history; nil disables persistence
	Queue queue.Queue                // pending ids; nil makes every cycle a full scan
	Hub   Publisher                  // nil disables events

	// Repairer defaults to repair.NewEngine(Store).
	Repairer *repair.Engine

	// WindowDays is the quality window used by RunCycle. 0 scores every record.
	WindowDays int

	Logger zerolog.Logger
	Now    func() time.Time
}

// Service runs validation operations against stored records.
type Service struct {
	store      storage.ForecastStore
	runs       storage.ValidationRunStore
	queue      queue.Queue
	hub        Publisher
	repairer   *repair.Engine
	windowDays int
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	s := &Service{
		store:      opts.Store,
		runs:       opts.Runs,
		queue:      opts.Queue,
		hub:        opts.Hub,
		repairer:   opts.Repairer,
		windowDays: opts.WindowDays,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.repairer == nil {
		s.repairer = repair.NewEngine(opts.Store).WithLogger(opts.Logger).WithClock(s.now)
	}
	return s
}

func (s *Service) checker() *bounds.Checker {
	return bounds.NewChecker().WithClock(s.now)
}

// CheckByID validates one stored record.
func (s *Service) CheckByID(ctx context.Context, id string) (domain.ValidationResult, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("get forecast %s: %w", id, err)
	}

	result := s.checker().Check(r)
	s.recordCheck(result)
	return result, nil
}

// CheckAll validates every record matching filter, in store order.
func (s *Service) CheckAll(ctx context.Context, filter storage.ForecastFilter) ([]domain.ValidationResult, error) {
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}

	results := s.checker().CheckAll(records)
	for _, r := range results {
		s.recordCheck(r)
	}
	return results, nil
}

// RepairByID repairs one stored record.
func (s *Service) RepairByID(ctx context.Context, id string) (*domain.RepairResult, error) {
	result, err := s.repairer.Repair(ctx, id)
	if err != nil {
		s.publish(events.Event{Type: events.TypeRepairError, ForecastID: id, Message: err.Error()})
		return result, err
	}
	if result.Status == domain.RepairStatusFixed && !s.repairer.DryRun() {
		s.publishRepair(*result)
	}
	return result, nil
}

// RepairAll repairs every record matching filter. The batch result is
// returned even when err is non-nil.
func (s *Service) RepairAll(ctx context.Context, filter storage.ForecastFilter) (*domain.BatchRepairResult, error) {
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return s.repairRecords(ctx, records)
}

func (s *Service) repairRecords(ctx context.Context, records []*domain.ForecastRecord) (*domain.BatchRepairResult, error) {
	batch, err := s.repairer.RepairAll(ctx, records)
	if batch == nil {
		return nil, err
	}

	if !s.repairer.DryRun() {
		for _, fixed := range batch.FixedDetails {
			s.publishRepair(fixed)
		}
	}
	for _, e := range batch.ErrorDetails {
		s.publish(events.Event{
			Type:       events.TypeRepairError,
			ForecastID: e.ForecastID,
			Message:    e.Message,
			Data:       e,
		})
	}
	return batch, err
}

// AnalyzeByID compares a stored record's prediction with its actual.
// Returns ErrNoActual when either amount is not set.
func (s *Service) AnalyzeByID(ctx context.Context, id string) (domain.AccuracyResult, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.AccuracyResult{}, fmt.Errorf("get forecast %s: %w", id, err)
	}

	result, ok := variance.AnalyzeRecord(r)
	if !ok {
		return domain.AccuracyResult{}, fmt.Errorf("analyze %s: %w", id, ErrNoActual)
	}
	observability.RecordRating(string(result.Rating))
	return result, nil
}

// Quality scores the records created within the last windowDays days.
func (s *Service) Quality(ctx context.Context, windowDays int) (domain.QualityReport, error) {
	records, err := s.store.List(ctx, storage.ForecastFilter{})
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("list forecasts: %w", err)
	}

	report := quality.ComputeReport(records, windowDays, s.now())
	observability.UpdateQuality(report.OverallScore, report.Completeness, report.Accuracy,
		report.Consistency, report.Timeliness, report.TotalRecords)
	s.publish(events.Event{
		Type:    events.TypeQuality,
		Message: fmt.Sprintf("overall %.1f (%s)", report.OverallScore, report.Grade),
		Data:    report,
	})
	return report, nil
}

// Enqueue marks a record for re-validation in the next cycle.
func (s *Service) Enqueue(ctx context.Context, id string) error {
	if s.queue == nil {
		return errors.New("no update queue configured")
	}
	return s.queue.Enqueue(ctx, id)
}

func (s *Service) recordCheck(r domain.ValidationResult) {
	observability.RecordCheck(r.Severity.String())
	for _, f := range r.Findings {
		observability.RecordFinding(string(f.Kind), f.Severity.String())
	}

	if r.Severity >= domain.SeverityWarning {
		msg := ""
		if len(r.Findings) > 0 {
			msg = r.Findings[0].Message
		}
		s.publish(events.Event{
			Type:       events.TypeValidation,
			ForecastID: r.ForecastID,
			Severity:   r.Severity.String(),
			Message:    msg,
			Data:       r,
		})
	}
}

func (s *Service) publishRepair(r domain.RepairResult) {
	s.publish(events.Event{
		Type:       events.TypeRepair,
		ForecastID: r.ForecastID,
		Severity:   r.Validation.Severity.String(),
		Message:    "bounds swapped",
		Data:       r,
	})
}

func (s *Service) publish(e events.Event) {
	if s.hub == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.hub.Publish(e)
}
