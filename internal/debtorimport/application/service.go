package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"condo-backoffice/internal/audit"
	debtorimport "condo-backoffice/internal/debtorimport/domain"
	"condo-backoffice/internal/observability/metrics"
	"condo-backoffice/internal/saga"
)

// RunRequest is one import run submitted by an authenticated actor.
type RunRequest struct {
	ProjectID string
	TenantID  string
	Actor     string
	Role      string
	IP        string
	UserAgent string
	Rows      []debtorimport.ImportRow
}

// Option configures the service.
type Option func(*Service)

// WithRunLocker serializes runs per project.
func WithRunLocker(locker RunLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithAuditLogger enables the audit record written after concluded runs.
func WithAuditLogger(logger audit.Logger) Option {
	return func(s *Service) {
		s.auditLogger = logger
	}
}

// WithPublisher sets the completion publisher.
func WithPublisher(publisher CompletionPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides id generation for runs, bills and ledger lines.
func WithIDGenerator(newID IDGenerator) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Service coordinates a debtor import run: resolve, validate, post, and
// commit or compensate.
type Service struct {
	units       UnitDirectory
	validator   *Validator
	poster      *Poster
	recorder    *AuditRecorder
	locker      RunLocker
	auditLogger audit.Logger
	publisher   CompletionPublisher
	clock       Clock
	newID       IDGenerator
	policy      FailurePolicy
	log         *log.Logger
}

// NewService constructs the import service.
func NewService(
	units UnitDirectory,
	bills BillStore,
	ledger LedgerStore,
	sequence BillNumberSequence,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if units == nil {
		return nil, errors.New("debtor import service: nil unit directory")
	}
	if bills == nil {
		return nil, errors.New("debtor import service: nil bill store")
	}
	if ledger == nil {
		return nil, errors.New("debtor import service: nil ledger store")
	}
	if sequence == nil {
		return nil, errors.New("debtor import service: nil bill number sequence")
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = PolicyAllOrNothing
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		units:  units,
		clock:  SystemClock{},
		newID:  NewUUID,
		policy: cfg.FailurePolicy,
		log:    log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	classifier, err := NewClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(bills, cfg.DuplicateTolerance, cfg.MaxRows)
	if err != nil {
		return nil, err
	}
	poster, err := NewPoster(bills, ledger, sequence, classifier, cfg.Accounts(), s.newID)
	if err != nil {
		return nil, err
	}
	s.validator = validator
	s.poster = poster
	s.recorder = NewAuditRecorder(s.auditLogger, cfg.AuditErrorLimit, s.policy, s.log)
	return s, nil
}

// Validate runs the entity resolver and the validator without writing
// anything and without taking the project lock.
func (s *Service) Validate(ctx context.Context, projectID string, rows []debtorimport.ImportRow) (debtorimport.ValidationReport, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return debtorimport.ValidationReport{}, debtorimport.ErrEmptyProjectID
	}
	prepared, _ := prepareRows(rows)
	index, err := BuildUnitIndex(ctx, s.units, projectID)
	if err != nil {
		return debtorimport.ValidationReport{}, err
	}
	return s.validator.Validate(ctx, projectID, prepared, index)
}

// Run imports a batch. The returned error is set only when the run stopped
// before any row was processed (missing project, lock held, unit fetch
// failure, validation rejection). Row failures, compensation and aborts are
// reported in the result.
func (s *Service) Run(ctx context.Context, req RunRequest) (result debtorimport.ImportResult, err error) {
	started := s.clock.Now()
	result = debtorimport.ImportResult{RunID: s.newID(), Errors: []debtorimport.RowError{}}
	concluded := false
	defer func() {
		if recovered := recover(); recovered != nil {
			if concluded {
				s.log.Printf("debtor import: run=%s project=%s panic after conclusion: %v", result.RunID, req.ProjectID, recovered)
				err = nil
				return
			}
			s.log.Printf("debtor import: run=%s project=%s panic: %v", result.RunID, req.ProjectID, recovered)
			metrics.ObserveImportRun(metrics.ResultError, s.clock.Now().Sub(started))
			result.Success = false
			err = fmt.Errorf("debtor import: unexpected failure: %v", recovered)
		}
	}()
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		metrics.ObserveImportRun(metrics.ResultError, s.clock.Now().Sub(started))
		return result, debtorimport.ErrEmptyProjectID
	}

	if s.locker != nil {
		release, lockErr := s.locker.Acquire(ctx, req.ProjectID)
		if lockErr != nil {
			s.log.Printf("debtor import: run=%s project=%s lock: %v", result.RunID, req.ProjectID, lockErr)
			metrics.ObserveImportRun(metrics.ResultError, s.clock.Now().Sub(started))
			return result, lockErr
		}
		defer release()
	}

	rows, blank := prepareRows(req.Rows)
	result.Skipped = blank
	result.Debug.BatchSize = len(rows)
	s.log.Printf("debtor import: run=%s project=%s actor=%s rows=%d blank=%d policy=%s",
		result.RunID, req.ProjectID, req.Actor, len(rows), blank, s.policy)

	index, err := BuildUnitIndex(ctx, s.units, req.ProjectID)
	if err != nil {
		s.log.Printf("debtor import: run=%s project=%s: %v", result.RunID, req.ProjectID, err)
		metrics.ObserveImportRun(metrics.ResultError, s.clock.Now().Sub(started))
		return result, err
	}
	result.Debug.UnitsFetched = index.Fetched()
	result.Debug.MapSize = index.Size()

	report, err := s.validator.Validate(ctx, req.ProjectID, rows, index)
	if err != nil {
		s.log.Printf("debtor import: run=%s project=%s validate: %v", result.RunID, req.ProjectID, err)
		metrics.ObserveImportRun(metrics.ResultError, s.clock.Now().Sub(started))
		return result, err
	}
	if !report.Valid {
		result.ValidationErrors = report.Errors
		result.UnmappedUnits = report.UnmappedUnits
		result.Skipped += len(rows)
		metrics.IncValidationRejection(rejectionReason(report))
		metrics.ObserveImportRun(metrics.ResultRejected, s.clock.Now().Sub(started))
		s.log.Printf("debtor import: run=%s project=%s rejected: %d validation errors, %d unmapped units",
			result.RunID, req.ProjectID, len(report.Errors), len(report.UnmappedUnits))
		return result, fmt.Errorf("%w: %d issues", debtorimport.ErrValidation, len(report.Errors))
	}

	outcome := s.process(ctx, req, rows, index, &result)
	concluded = true

	metrics.AddImportRows(metrics.RowImported, result.Imported)
	metrics.AddImportRows(metrics.RowFailed, result.Failed)
	metrics.AddImportRows(metrics.RowSkipped, result.Skipped)
	metrics.ObserveImportRun(outcome, s.clock.Now().Sub(started))
	s.log.Printf("debtor import: run=%s project=%s done result=%s imported=%d failed=%d skipped=%d",
		result.RunID, req.ProjectID, outcome, result.Imported, result.Failed, result.Skipped)

	if outcome == metrics.ResultAborted {
		return result, nil
	}
	s.recorder.Record(ctx, req, result)
	if result.Success && result.Imported > 0 {
		s.publishCompleted(ctx, req, result)
	}
	return result, nil
}

// process posts the validated rows and applies the failure policy. It
// returns the metrics result label of the run.
func (s *Service) process(ctx context.Context, req RunRequest, rows []debtorimport.ImportRow, index *UnitIndex, result *debtorimport.ImportResult) (outcome string) {
	sg := saga.New()
	current := -1
	var billIDs []string

	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		s.log.Printf("debtor import: run=%s project=%s panic: %v", result.RunID, req.ProjectID, recovered)
		rowErr := debtorimport.RowError{Error: fmt.Sprintf("debtor import: unexpected failure: %v", recovered), RolledBack: true}
		if current >= 0 && current < len(rows) {
			rowErr.Row = rows[current].RowNumber
			rowErr.Unit = strings.TrimSpace(rows[current].UnitNumber)
		}
		s.abort(ctx, sg, rows, current, rowErr, result)
		outcome = metrics.ResultAborted
	}()

	for i, row := range rows {
		current = i
		unitID, _ := index.Resolve(row.UnitNumber)
		posting, err := s.poster.Post(ctx, sg, req.ProjectID, unitID, row)
		if err == nil {
			result.Imported++
			billIDs = append(billIDs, posting.Bill.ID)
			continue
		}

		rowErr := debtorimport.RowError{
			Row:   row.RowNumber,
			Unit:  strings.TrimSpace(row.UnitNumber),
			Error: err.Error(),
		}
		s.recordLocalCompensationFailure(err, row, result)

		if s.policy == PolicyAllOrNothing {
			rowErr.RolledBack = true
			s.log.Printf("debtor import: run=%s project=%s row %d failed, compensating %d steps: %v",
				result.RunID, req.ProjectID, row.RowNumber, sg.Committed(), err)
			s.abort(ctx, sg, rows, i, rowErr, result)
			return metrics.ResultAborted
		}
		s.log.Printf("debtor import: run=%s project=%s row %d skipped: %v", result.RunID, req.ProjectID, row.RowNumber, err)
		result.Failed++
		result.Errors = append(result.Errors, rowErr)
	}

	result.BillIDs = billIDs
	switch {
	case result.Failed == 0:
		result.Success = true
		return metrics.ResultSuccess
	case result.Imported > 0:
		result.Success = true
		return metrics.ResultPartial
	default:
		return metrics.ResultError
	}
}

// abort undoes everything the run committed and rewrites the result as a
// failure: the row at failedAt is the one failure, every other row counts as
// skipped.
func (s *Service) abort(ctx context.Context, sg *saga.Saga, rows []debtorimport.ImportRow, failedAt int, rowErr debtorimport.RowError, result *debtorimport.ImportResult) {
	result.Errors = append(result.Errors, rowErr)
	if err := sg.Compensate(ctx); err != nil {
		s.log.Printf("debtor import: run=%s compensation incomplete: %v", result.RunID, err)
		metrics.IncCompensation(metrics.ResultError)
		result.Errors = append(result.Errors, debtorimport.RowError{
			Row:   rowErr.Row,
			Unit:  rowErr.Unit,
			Error: fmt.Sprintf("%v: %v", debtorimport.ErrCompensation, err),
		})
	} else {
		metrics.IncCompensation(metrics.ResultSuccess)
	}

	result.Success = false
	result.Imported = 0
	result.BillIDs = nil
	if failedAt >= 0 {
		result.Failed = 1
		result.Skipped += len(rows) - 1
		return
	}
	result.Failed = 0
	result.Skipped += len(rows)
}

// recordLocalCompensationFailure surfaces a failed undo of the failing row's
// own partial write.
func (s *Service) recordLocalCompensationFailure(err error, row debtorimport.ImportRow, result *debtorimport.ImportResult) {
	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) || stepErr.CompensationErr == nil {
		return
	}
	metrics.IncCompensation(metrics.ResultError)
	result.Errors = append(result.Errors, debtorimport.RowError{
		Row:   row.RowNumber,
		Unit:  strings.TrimSpace(row.UnitNumber),
		Error: fmt.Sprintf("%v: %v", debtorimport.ErrCompensation, stepErr.CompensationErr),
	})
}

func (s *Service) publishCompleted(ctx context.Context, req RunRequest, result debtorimport.ImportResult) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			s.log.Printf("debtor import: run=%s publish completion panic: %v", result.RunID, recovered)
		}
	}()
	event := ImportCompleted{
		ProjectID:  req.ProjectID,
		RunID:      result.RunID,
		Actor:      req.Actor,
		Imported:   result.Imported,
		BillIDs:    append([]string(nil), result.BillIDs...),
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.PublishImportCompleted(ctx, event); err != nil {
		s.log.Printf("debtor import: run=%s publish completion: %v", result.RunID, err)
	}
}

// prepareRows drops blank rows and numbers the rest by submission position
// when the caller did not.
func prepareRows(rows []debtorimport.ImportRow) ([]debtorimport.ImportRow, int) {
	prepared := make([]debtorimport.ImportRow, 0, len(rows))
	blank := 0
	for i, row := range rows {
		if row.RowNumber <= 0 {
			row.RowNumber = i + 1
		}
		if row.IsBlank() {
			blank++
			continue
		}
		prepared = append(prepared, row)
	}
	return prepared, blank
}

func rejectionReason(report debtorimport.ValidationReport) string {
	if len(report.UnmappedUnits) > 0 {
		return "unmapped_unit"
	}
	for _, msg := range report.Errors {
		switch {
		case strings.Contains(msg, debtorimport.ErrMissingField.Error()):
			return "missing_field"
		case strings.Contains(msg, debtorimport.ErrInvalidAmount.Error()):
			return "invalid_amount"
		case strings.Contains(msg, debtorimport.ErrDuplicateInBatch.Error()):
			return "duplicate_in_batch"
		case strings.Contains(msg, debtorimport.ErrDuplicateInStore.Error()):
			return "duplicate_in_store"
		case strings.Contains(msg, debtorimport.ErrTooManyRows.Error()):
			return "too_many_rows"
		case strings.Contains(msg, debtorimport.ErrEmptyBatch.Error()):
			return "empty_batch"
		}
	}
	return "unknown"
}
