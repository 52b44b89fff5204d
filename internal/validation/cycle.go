package validation

import (
	"context"
	"errors"
	"fmt"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/events"
	"forecast-guard/internal/idhash"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/quality"
	"forecast-guard/internal/storage"
	"forecast-guard/internal/variance"
)

// Cycle scopes, used in run ids.
const (
	ScopeQueue = "queue"
	ScopeFull  = "full"
)

// Cycle statuses reported to metrics.
const (
	CycleSuccess = "success"
	CyclePartial = "partial"
	CycleFailed  = "failed"
)

// CycleOptions controls one validation cycle.
type CycleOptions struct {
	// AutoRepair swaps inverted bounds of checked records.
	AutoRepair bool
	// Full validates every stored record when the queue is empty or absent.
	Full bool
	// MaxItems caps how many queued ids are drained. 0 drains everything.
	MaxItems int
}

// RunResult contains results from one validation cycle.
type RunResult struct {
	Run      domain.ValidationRun
	Scope    string
	Results  []domain.ValidationResult
	Repair   *domain.BatchRepairResult // nil unless AutoRepair ran
	Quality  domain.QualityReport
	Outcomes []*domain.RecordOutcome
	Errors   []string
}

// RunCycle drains the update queue, validates the drained records, repairs
// them if asked, scores quality and writes the run history.
// Per-record failures are collected in RunResult.Errors. A returned error
// means the cycle could not complete: drained ids are put back and the
// partial RunResult, with the failure listed in Errors, is returned too.
func (s *Service) RunCycle(ctx context.Context, opts CycleOptions) (*RunResult, error) {
	startedAt := s.now()
	result := &RunResult{Scope: ScopeQueue}
	result.Run.StartedAt = startedAt

	records, drained, err := s.collect(ctx, opts, result)
	if err != nil {
		s.requeue(ctx, drained)
		result.Errors = append(result.Errors, err.Error())
		result.Run.FinishedAt = s.now()
		observability.RecordCycle(CycleFailed, result.Run.FinishedAt.Sub(startedAt))
		return result, err
	}
	result.Run.RunID = idhash.ComputeRunID(result.Scope, startedAt)

	s.logger.Info().
		Str("run_id", result.Run.RunID).
		Str("scope", result.Scope).
		Int("records", len(records)).
		Msg("validation cycle started")

	checker := s.checker()
	result.Results = checker.CheckAll(records)
	for _, r := range result.Results {
		s.recordCheck(r)
	}

	repaired := make(map[string]domain.BoundsSnapshot)
	final := make(map[string]domain.ValidationResult, len(result.Results))
	for _, r := range result.Results {
		final[r.ForecastID] = r
	}

	if opts.AutoRepair {
		var inverted []*domain.ForecastRecord
		for i, r := range records {
			if result.Results[i].SeverityOf(domain.CheckBoundsLogic) == domain.SeverityCritical {
				inverted = append(inverted, r)
			}
		}

		batch, err := s.repairRecords(ctx, inverted)
		if batch != nil {
			result.Repair = batch
			if !s.repairer.DryRun() {
				for _, fixed := range batch.FixedDetails {
					final[fixed.ForecastID] = fixed.Validation
					repaired[fixed.ForecastID] = *fixed.After
				}
			}
			for _, e := range batch.ErrorDetails {
				result.Errors = append(result.Errors, fmt.Sprintf("repair %s: %s", e.ForecastID, e.Message))
			}
		}
		if err != nil {
			err = fmt.Errorf("repair: %w", err)
			result.Errors = append(result.Errors, fmt.Sprintf("cycle aborted: %v", err))
			s.summarize(result, final)
			result.Run.FinishedAt = s.now()
			s.requeue(ctx, drained)
			observability.RecordCycle(CycleFailed, result.Run.FinishedAt.Sub(startedAt))
			s.logger.Error().Err(err).
				Str("run_id", result.Run.RunID).
				Int("fixed", result.Run.Fixed).
				Msg("validation cycle aborted")
			return result, err
		}
	}

	all, err := s.store.List(ctx, storage.ForecastFilter{})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("quality snapshot: %v", err))
	} else {
		result.Quality = quality.ComputeReport(all, s.windowDays, s.now())
		observability.UpdateQuality(result.Quality.OverallScore, result.Quality.Completeness,
			result.Quality.Accuracy, result.Quality.Consistency, result.Quality.Timeliness,
			result.Quality.TotalRecords)
	}

	result.Outcomes = s.buildOutcomes(result.Run.RunID, records, final, repaired)
	s.summarize(result, final)
	result.Run.FinishedAt = s.now()

	if s.runs != nil {
		if err := s.runs.InsertRun(ctx, &result.Run); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("insert run: %v", err))
		} else if err := s.runs.InsertOutcomes(ctx, result.Outcomes); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("insert outcomes: %v", err))
		}
	}

	status := CycleSuccess
	if len(result.Errors) > 0 {
		status = CyclePartial
	}
	observability.RecordCycle(status, result.Run.FinishedAt.Sub(startedAt))

	s.publish(qualityEvent(result))
	s.logger.Info().
		Str("run_id", result.Run.RunID).
		Int("checked", result.Run.Checked).
		Int("critical", result.Run.Critical).
		Int("fixed", result.Run.Fixed).
		Int("errors", len(result.Errors)).
		Float64("quality", result.Run.QualityScore).
		Msg("validation cycle complete")

	return result, nil
}

// collect resolves the records to validate. Ids that no longer exist are
// reported and skipped. The returned ids are the drained ones that still
// exist, or on error the ones to put back.
func (s *Service) collect(ctx context.Context, opts CycleOptions, result *RunResult) ([]*domain.ForecastRecord, []string, error) {
	var ids []string
	if s.queue != nil {
		items, err := s.queue.Drain(ctx, opts.MaxItems)
		for _, it := range items {
			ids = append(ids, it.ForecastID)
		}
		if err != nil {
			return nil, ids, fmt.Errorf("drain queue: %w", err)
		}
		if n, err := s.queue.Len(ctx); err == nil {
			observability.UpdateQueueDepth(n)
		}
	}

	if len(ids) == 0 && (opts.Full || s.queue == nil) {
		result.Scope = ScopeFull
		records, err := s.store.List(ctx, storage.ForecastFilter{})
		if err != nil {
			return nil, nil, fmt.Errorf("list forecasts: %w", err)
		}
		return records, nil, nil
	}

	records := make([]*domain.ForecastRecord, 0, len(ids))
	pending := make([]string, 0, len(ids))
	for i, id := range ids {
		r, err := s.store.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("forecast %s: not found", id))
			continue
		}
		if err != nil {
			// Nothing has been validated yet: every existing id goes back.
			return nil, append(pending, ids[i:]...), fmt.Errorf("get forecast %s: %w", id, err)
		}
		records = append(records, r)
		pending = append(pending, id)
	}
	return records, pending, nil
}

func (s *Service) requeue(ctx context.Context, ids []string) {
	if s.queue == nil {
		return
	}
	for _, id := range ids {
		if err := s.queue.Enqueue(context.WithoutCancel(ctx), id); err != nil {
			s.logger.Warn().Err(err).Str("forecast_id", id).Msg("requeue failed")
		}
	}
}

// buildOutcomes records each record's state at the end of the cycle.
// repaired holds the post-swap bounds of records fixed in this cycle.
func (s *Service) buildOutcomes(
	runID string,
	records []*domain.ForecastRecord,
	final map[string]domain.ValidationResult,
	repaired map[string]domain.BoundsSnapshot,
) []*domain.RecordOutcome {
	outcomes := make([]*domain.RecordOutcome, 0, len(records))
	for _, r := range records {
		v := final[r.ID]
		o := &domain.RecordOutcome{
			RunID:        runID,
			ForecastID:   r.ID,
			CheckedAt:    v.CheckedAt,
			Severity:     v.Severity,
			FindingCount: len(v.Findings),
		}

		if r.HasBounds() {
			b := r.Bounds()
			if after, ok := repaired[r.ID]; ok {
				b = after
			}
			w := b.Upper.Sub(b.Lower).InexactFloat64()
			o.BoundsWidth = &w
		}

		if acc, ok := variance.AnalyzeRecord(r); ok {
			pct := acc.AccuracyPercentage
			o.AccuracyPct = &pct
			o.Rating = acc.Rating
			observability.RecordRating(string(acc.Rating))
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (s *Service) summarize(result *RunResult, final map[string]domain.ValidationResult) {
	run := &result.Run
	run.Checked = len(result.Results)
	for _, r := range result.Results {
		switch final[r.ForecastID].Severity {
		case domain.SeverityCritical:
			run.Critical++
		case domain.SeverityWarning:
			run.Warning++
		case domain.SeverityOK:
			run.OK++
		default:
			run.Skipped++
		}
	}
	if result.Repair != nil {
		run.Fixed = result.Repair.Fixed
		run.RepairErrors = result.Repair.Errors
	}
	run.QualityScore = result.Quality.OverallScore
	run.QualityGrade = result.Quality.Grade
}

func qualityEvent(result *RunResult) events.Event {
	return events.Event{
		Type: events.TypeQuality,
		Message: fmt.Sprintf("run %s: %d checked, %d critical, %d fixed, quality %.1f (%s)",
			result.Run.RunID, result.Run.Checked, result.Run.Critical, result.Run.Fixed,
			result.Quality.OverallScore, result.Quality.Grade),
		Data: result.Run,
	}
}
