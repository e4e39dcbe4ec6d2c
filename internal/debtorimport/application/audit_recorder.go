package application

import (
	"context"
	"encoding/json"
	"log"

	"condo-backoffice/internal/audit"
	debtorimport "condo-backoffice/internal/debtorimport/domain"
	"condo-backoffice/internal/observability/metrics"
)

const (
	auditActionImport   = "debtor_import.run"
	auditResourceImport = "project"
)

type auditMetadata struct {
	RunID    string                  `json:"runId"`
	Success  bool                    `json:"success"`
	Imported int                     `json:"imported"`
	Failed   int                     `json:"failed"`
	Skipped  int                     `json:"skipped"`
	Policy   FailurePolicy           `json:"policy"`
	Errors   []debtorimport.RowError `json:"errors,omitempty"`
}

// AuditRecorder writes one audit entry per concluded run. Failures are
// logged and never change the run's outcome.
type AuditRecorder struct {
	logger     audit.Logger
	errorLimit int
	policy     FailurePolicy
	log        *log.Logger
}

// NewAuditRecorder constructs a recorder. A nil audit logger disables it.
func NewAuditRecorder(logger audit.Logger, errorLimit int, policy FailurePolicy, l *log.Logger) *AuditRecorder {
	if l == nil {
		l = log.Default()
	}
	if errorLimit <= 0 {
		errorLimit = defaultAuditErrorLimit
	}
	return &AuditRecorder{logger: logger, errorLimit: errorLimit, policy: policy, log: l}
}

// Record writes the audit entry for a run.
func (r *AuditRecorder) Record(ctx context.Context, req RunRequest, result debtorimport.ImportResult) {
	if r == nil || r.logger == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Printf("debtor import audit: run=%s project=%s panic: %v", result.RunID, req.ProjectID, recovered)
			metrics.IncAuditFailure()
		}
	}()
	errs := result.Errors
	if len(errs) > r.errorLimit {
		errs = errs[:r.errorLimit]
	}
	metadata, err := json.Marshal(auditMetadata{
		RunID:    result.RunID,
		Success:  result.Success,
		Imported: result.Imported,
		Failed:   result.Failed,
		Skipped:  result.Skipped,
		Policy:   r.policy,
		Errors:   errs,
	})
	if err != nil {
		r.log.Printf("debtor import audit: marshal metadata run=%s: %v", result.RunID, err)
		metrics.IncAuditFailure()
		return
	}
	entry := audit.Entry{
		TenantID:     req.TenantID,
		Actor:        req.Actor,
		Role:         req.Role,
		Action:       auditActionImport,
		ResourceType: auditResourceImport,
		ResourceID:   req.ProjectID,
		ProjectID:    req.ProjectID,
		Metadata:     metadata,
		IP:           req.IP,
		UserAgent:    req.UserAgent,
	}
	if err := r.logger.Log(ctx, entry); err != nil {
		r.log.Printf("debtor import audit: write run=%s project=%s: %v", result.RunID, req.ProjectID, err)
		metrics.IncAuditFailure()
	}
}
