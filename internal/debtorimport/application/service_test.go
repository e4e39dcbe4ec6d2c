package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"condo-backoffice/internal/audit"
	debtorimport "condo-backoffice/internal/debtorimport/domain"
	"condo-backoffice/internal/debtorimport/infrastructure/memory"
)

const testProject = "project-1"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingLedger struct {
	*memory.LedgerStore
	calls  int
	failOn int
}

func (l *failingLedger) InsertEntries(ctx context.Context, entries []debtorimport.LedgerEntry) error {
	l.calls++
	if l.calls == l.failOn {
		return errors.New("ledger unavailable")
	}
	return l.LedgerStore.InsertEntries(ctx, entries)
}

type panickingSequence struct {
	*memory.BillNumberSequence
	calls   int
	panicOn int
}

func (s *panickingSequence) Next(ctx context.Context, projectID string, period debtorimport.BillPeriod) (int, error) {
	s.calls++
	if s.calls == s.panicOn {
		panic("sequence exploded")
	}
	return s.BillNumberSequence.Next(ctx, projectID, period)
}

type failingUnits struct{}

func (failingUnits) ListUnits(context.Context, string) ([]debtorimport.Unit, error) {
	return nil, errors.New("directory offline")
}

type publisherStub struct {
	events []ImportCompleted
}

func (p *publisherStub) PublishImportCompleted(ctx context.Context, event ImportCompleted) error {
	_ = ctx
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	units     *memory.UnitDirectory
	bills     *memory.BillStore
	ledger    *memory.LedgerStore
	sequence  *memory.BillNumberSequence
	audit     *audit.MemoryLog
	publisher *publisherStub
}

func newFixture() *fixture {
	bills := memory.NewBillStore()
	return &fixture{
		units: memory.NewUnitDirectory(
			debtorimport.Unit{ID: "unit-a101", ProjectID: testProject, UnitNumber: "A101"},
			debtorimport.Unit{ID: "unit-a102", ProjectID: testProject, UnitNumber: "A102"},
			debtorimport.Unit{ID: "unit-b201", ProjectID: testProject, UnitNumber: "B201"},
		),
		bills:     bills,
		ledger:    memory.NewLedgerStore(),
		sequence:  memory.NewBillNumberSequence(bills),
		audit:     audit.NewMemoryLog(),
		publisher: &publisherStub{},
	}
}

func (f *fixture) service(t *testing.T, ledger LedgerStore, sequence BillNumberSequence, cfg Config) *Service {
	t.Helper()
	if ledger == nil {
		ledger = f.ledger
	}
	if sequence == nil {
		sequence = f.sequence
	}
	counter := 0
	svc, err := NewService(f.units, f.bills, ledger, sequence, cfg,
		WithAuditLogger(f.audit),
		WithPublisher(f.publisher),
		WithLogger(log.New(io.Discard, "", 0)),
		WithClock(fixedClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}),
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("id-%03d", counter)
		}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(unit, service string, amount string, billDate time.Time) debtorimport.ImportRow {
	return debtorimport.ImportRow{
		UnitNumber:  unit,
		ServiceName: service,
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		BillDate:    billDate,
		DueDate:     billDate.AddDate(0, 0, 15),
	}
}

func TestRunPostsBalancedPairs(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Actor:     "user-1",
		Rows: []debtorimport.ImportRow{
			row("A101", "ค่าน้ำประปา", "350.50", day(2026, 1, 10)),
			row("A102", "Common fee", "1200.00", day(2026, 1, 10)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success || result.Imported != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	bills := f.bills.List(testProject)
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(bills))
	}
	entries := f.ledger.List(testProject)
	if len(entries) != 4 {
		t.Fatalf("expected 4 ledger lines, got %d", len(entries))
	}
	for _, bill := range bills {
		if !bill.CreatedAt.Equal(day(2026, 1, 10)) {
			t.Fatalf("bill %s not backdated: %v", bill.BillNumber, bill.CreatedAt)
		}
		if !bill.BucketSum().Equal(bill.Total) {
			t.Fatalf("bill %s buckets %s != total %s", bill.BillNumber, bill.BucketSum(), bill.Total)
		}
		var debit, credit decimal.Decimal
		for _, entry := range entries {
			if entry.BillID != bill.ID {
				continue
			}
			if !entry.TransactionDate.Equal(bill.CreatedAt) {
				t.Fatalf("entry %s dated %v, bill %v", entry.ID, entry.TransactionDate, bill.CreatedAt)
			}
			switch entry.AccountCode {
			case defaultReceivableAccount:
				debit = debit.Add(entry.Debit)
			case defaultRevenueAccount:
				credit = credit.Add(entry.Credit)
			default:
				t.Fatalf("unexpected account %s", entry.AccountCode)
			}
		}
		if !debit.Equal(bill.Total) || !credit.Equal(bill.Total) {
			t.Fatalf("bill %s: debit %s credit %s total %s", bill.BillNumber, debit, credit, bill.Total)
		}
	}
	if !bills[0].WaterFee.Equal(decimal.RequireFromString("350.50")) {
		t.Fatalf("expected water bucket, got %+v", bills[0])
	}
}

func TestRunSynthesizesBillNumbersPerMonth(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	_, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "100", day(2026, 1, 5)),
			row("A102", "water", "100", day(2026, 1, 5)),
			row("A101", "water", "100", day(2026, 2, 5)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := map[string]bool{}
	for _, bill := range f.bills.List(testProject) {
		got[bill.BillNumber] = true
	}
	for _, want := range []string{"BILL-202601-001", "BILL-202601-002", "BILL-202602-001"} {
		if !got[want] {
			t.Fatalf("missing bill number %s in %v", want, got)
		}
	}
}

func TestRunKeepsInvoiceNumber(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())
	r := row("A101", "electricity", "80", day(2026, 1, 5))
	r.InvoiceNumber = " INV-9001 "

	if _, err := svc.Run(context.Background(), RunRequest{ProjectID: testProject, Rows: []debtorimport.ImportRow{r}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	bills := f.bills.List(testProject)
	if len(bills) != 1 || bills[0].BillNumber != "INV-9001" {
		t.Fatalf("expected invoice number kept, got %+v", bills)
	}
}

func TestRunRejectsBatchWithoutWrites(t *testing.T) {
	missingAmount := row("A102", "water", "10", day(2026, 1, 5))
	missingAmount.Amount = decimal.NullDecimal{}

	cases := []struct {
		name         string
		rows         []debtorimport.ImportRow
		wantUnmapped []string
		wantErr      error
	}{
		{
			name: "unmapped unit",
			rows: []debtorimport.ImportRow{
				row("A101", "water", "10", day(2026, 1, 5)),
				row("Z999", "water", "10", day(2026, 1, 5)),
			},
			wantUnmapped: []string{"Z999"},
			wantErr:      debtorimport.ErrUnmappedUnit,
		},
		{
			name: "missing amount",
			rows: []debtorimport.ImportRow{
				row("A101", "water", "10", day(2026, 1, 5)),
				missingAmount,
			},
			wantErr: debtorimport.ErrMissingField,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			svc := f.service(t, nil, nil, DefaultConfig())
			result, err := svc.Run(context.Background(), RunRequest{ProjectID: testProject, Rows: tc.rows})
			if !errors.Is(err, debtorimport.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(f.bills.List(testProject)) != 0 || len(f.ledger.List(testProject)) != 0 {
				t.Fatalf("expected zero writes")
			}
			if result.Imported != 0 || result.Success {
				t.Fatalf("unexpected result: %+v", result)
			}
			if len(tc.wantUnmapped) > 0 && strings.Join(result.UnmappedUnits, ",") != strings.Join(tc.wantUnmapped, ",") {
				t.Fatalf("expected unmapped %v, got %v", tc.wantUnmapped, result.UnmappedUnits)
			}
			found := false
			for _, msg := range result.ValidationErrors {
				if strings.Contains(msg, tc.wantErr.Error()) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q in %v", tc.wantErr, result.ValidationErrors)
			}
			if len(f.audit.Entries()) != 0 {
				t.Fatalf("rejected run must not be audited")
			}
		})
	}
}

func TestUnitMatchingIgnoresCaseAndWhitespace(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "10", day(2026, 1, 1)),
			row(" a101 ", "water", "10", day(2026, 1, 2)),
			row("A101 ", "water", "10", day(2026, 1, 3)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Imported != 3 {
		t.Fatalf("expected 3 imported, got %+v", result)
	}
	for _, bill := range f.bills.List(testProject) {
		if bill.UnitID != "unit-a101" {
			t.Fatalf("expected unit-a101, got %s", bill.UnitID)
		}
	}
}

func TestValidateDuplicateKeys(t *testing.T) {
	invoiceA := row("A101", "water", "10", day(2026, 1, 5))
	invoiceA.InvoiceNumber = "INV-1"
	invoiceA.Description = "first"
	invoiceB := row("a101", "water", "99", day(2026, 1, 5))
	invoiceB.InvoiceNumber = "INV-1"
	invoiceB.Description = "second"

	cases := []struct {
		name      string
		rows      []debtorimport.ImportRow
		wantValid bool
	}{
		{name: "same invoice different description", rows: []debtorimport.ImportRow{invoiceA, invoiceB}},
		{
			name: "same unit date service amount",
			rows: []debtorimport.ImportRow{
				row("A101", "water", "10", day(2026, 1, 5)),
				row("A101", "water", "10.00", day(2026, 1, 5)),
			},
		},
		{
			name: "different amount",
			rows: []debtorimport.ImportRow{
				row("A101", "water", "10", day(2026, 1, 5)),
				row("A101", "water", "11", day(2026, 1, 5)),
			},
			wantValid: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			svc := f.service(t, nil, nil, DefaultConfig())
			report, err := svc.Validate(context.Background(), testProject, tc.rows)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if report.Valid != tc.wantValid {
				t.Fatalf("expected valid=%v, got %+v", tc.wantValid, report)
			}
			if !tc.wantValid && len(report.Errors) != 2 {
				t.Fatalf("expected both rows reported, got %v", report.Errors)
			}
		})
	}
}

func TestRunRejectsPersistedDuplicate(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())
	first := []debtorimport.ImportRow{row("A101", "water", "100.00", day(2026, 1, 5))}
	if _, err := svc.Run(context.Background(), RunRequest{ProjectID: testProject, Rows: first}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	again := []debtorimport.ImportRow{row("A101", "water supply", "100.004", day(2026, 1, 5))}
	result, err := svc.Run(context.Background(), RunRequest{ProjectID: testProject, Rows: again})
	if !errors.Is(err, debtorimport.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(result.ValidationErrors) != 1 || !strings.Contains(result.ValidationErrors[0], debtorimport.ErrDuplicateInStore.Error()) {
		t.Fatalf("unexpected validation errors: %v", result.ValidationErrors)
	}
	if len(f.bills.List(testProject)) != 1 {
		t.Fatalf("expected the first bill only")
	}
}

func TestRunCompensatesOnLedgerFailure(t *testing.T) {
	f := newFixture()
	ledger := &failingLedger{LedgerStore: f.ledger, failOn: 3}
	svc := f.service(t, ledger, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "10", day(2026, 1, 5)),
			row("A102", "water", "20", day(2026, 1, 5)),
			row("B201", "water", "30", day(2026, 1, 5)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success || result.Imported != 0 || result.Failed != 1 || result.Skipped != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if n := len(f.bills.List(testProject)); n != 0 {
		t.Fatalf("expected zero bills, got %d", n)
	}
	if n := len(f.ledger.List(testProject)); n != 0 {
		t.Fatalf("expected zero ledger lines, got %d", n)
	}
	rolledBack := 0
	for _, e := range result.Errors {
		if e.RolledBack {
			rolledBack++
			if e.Row != 3 || e.Unit != "B201" {
				t.Fatalf("unexpected rolled back error: %+v", e)
			}
		}
	}
	if rolledBack != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected one rolled back error, got %+v", result.Errors)
	}
	if len(f.audit.Entries()) != 0 {
		t.Fatalf("aborted run must not be audited")
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("aborted run must not publish")
	}
}

func TestRunSkipAndContinue(t *testing.T) {
	f := newFixture()
	ledger := &failingLedger{LedgerStore: f.ledger, failOn: 2}
	cfg := DefaultConfig()
	cfg.FailurePolicy = PolicySkipAndContinue
	svc := f.service(t, ledger, nil, cfg)

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "10", day(2026, 1, 5)),
			row("A102", "water", "20", day(2026, 1, 5)),
			row("B201", "water", "30", day(2026, 1, 5)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Imported != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Row != 2 || result.Errors[0].RolledBack {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	bills := f.bills.List(testProject)
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills after local compensation, got %d", len(bills))
	}
	for _, bill := range bills {
		if bill.UnitID == "unit-a102" {
			t.Fatalf("failed row's bill should be removed")
		}
	}
	if len(f.ledger.List(testProject)) != 4 {
		t.Fatalf("expected 4 ledger lines")
	}
	if len(f.audit.Entries()) != 1 {
		t.Fatalf("expected partial run to be audited")
	}
}

func TestRunRecoversPanicAndCompensates(t *testing.T) {
	f := newFixture()
	sequence := &panickingSequence{BillNumberSequence: f.sequence, panicOn: 2}
	svc := f.service(t, nil, sequence, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "10", day(2026, 1, 5)),
			row("A102", "water", "20", day(2026, 1, 5)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success || result.Imported != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.bills.List(testProject)) != 0 || len(f.ledger.List(testProject)) != 0 {
		t.Fatalf("expected compensation after panic")
	}
}

func TestRunAuditsAndPublishesSuccess(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		TenantID:  "tenant-1",
		Actor:     "user-7",
		Role:      "admin",
		Rows:      []debtorimport.ImportRow{row("A101", "fine", "500", day(2026, 1, 5))},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != auditActionImport || entry.Actor != "user-7" || entry.ProjectID != testProject {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if !strings.Contains(string(entry.Metadata), `"imported":1`) {
		t.Fatalf("metadata missing counts: %s", entry.Metadata)
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(f.publisher.events))
	}
	event := f.publisher.events[0]
	if event.RunID != result.RunID || event.Imported != 1 || len(event.BillIDs) != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}
	bills := f.bills.List(testProject)
	if bills[0].Category != debtorimport.CategoryFine || !bills[0].OtherFee.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected fine in other bucket, got %+v", bills[0])
	}
}

func TestRunSkipsBlankRows(t *testing.T) {
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			row("A101", "water", "10", day(2026, 1, 5)),
			{},
			{RowNumber: 9},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 2 || result.Debug.BatchSize != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFixture()
	locker := memory.NewRunLocker()
	svc, err := NewService(f.units, f.bills, f.ledger, f.sequence, DefaultConfig(),
		WithRunLocker(locker),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	release, err := locker.Acquire(context.Background(), testProject)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows:      []debtorimport.ImportRow{row("A101", "water", "10", day(2026, 1, 5))},
	})
	if !errors.Is(err, debtorimport.ErrImportInProgress) {
		t.Fatalf("expected ErrImportInProgress, got %v", err)
	}
}

func TestRunUnitFetchFailure(t *testing.T) {
	f := newFixture()
	svc, err := NewService(failingUnits{}, f.bills, f.ledger, f.sequence, DefaultConfig(), WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows:      []debtorimport.ImportRow{row("A101", "water", "10", day(2026, 1, 5))},
	})
	if !errors.Is(err, debtorimport.ErrUnitFetch) {
		t.Fatalf("expected ErrUnitFetch, got %v", err)
	}
}

func TestNewServiceRejectsNilCollaborators(t *testing.T) {
	f := newFixture()
	if _, err := NewService(nil, f.bills, f.ledger, f.sequence, DefaultConfig()); err == nil {
		t.Fatalf("expected error for nil unit directory")
	}
	if _, err := NewService(f.units, nil, f.ledger, f.sequence, DefaultConfig()); err == nil {
		t.Fatalf("expected error for nil bill store")
	}
	cfg := DefaultConfig()
	cfg.FailurePolicy = "sometimes"
	if _, err := NewService(f.units, f.bills, f.ledger, f.sequence, cfg); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

type failingAuditLogger struct {
	calls int
}

func (l *failingAuditLogger) Log(context.Context, audit.Entry) error {
	l.calls++
	return errors.New("audit store offline")
}

type panickingAuditLogger struct{}

func (panickingAuditLogger) Log(context.Context, audit.Entry) error {
	panic("audit store exploded")
}

type panickingPublisher struct{}

func (panickingPublisher) PublishImportCompleted(context.Context, ImportCompleted) error {
	panic("bus exploded")
}

func TestRunOutcomeSurvivesAuditAndPublishFailures(t *testing.T) {
	cases := []struct {
		name      string
		logger    audit.Logger
		publisher CompletionPublisher
	}{
		{name: "audit error", logger: &failingAuditLogger{}},
		{name: "audit panic", logger: panickingAuditLogger{}},
		{name: "publish panic", logger: audit.NewMemoryLog(), publisher: panickingPublisher{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			opts := []Option{WithAuditLogger(tc.logger), WithLogger(log.New(io.Discard, "", 0))}
			if tc.publisher != nil {
				opts = append(opts, WithPublisher(tc.publisher))
			}
			svc, err := NewService(f.units, f.bills, f.ledger, f.sequence, DefaultConfig(), opts...)
			if err != nil {
				t.Fatalf("new service: %v", err)
			}

			result, err := svc.Run(context.Background(), RunRequest{
				ProjectID: testProject,
				Rows:      []debtorimport.ImportRow{row("A101", "water", "100", day(2026, 1, 5))},
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !result.Success || result.Imported != 1 || result.Failed != 0 || len(result.BillIDs) != 1 {
				t.Fatalf("unexpected result: %+v", result)
			}
			if got := len(f.bills.List(testProject)); got != 1 {
				t.Fatalf("expected 1 bill, got %d", got)
			}
			if got := len(f.ledger.List(testProject)); got != 2 {
				t.Fatalf("expected 2 ledger lines, got %d", got)
			}
			if failing, ok := tc.logger.(*failingAuditLogger); ok && failing.calls != 1 {
				t.Fatalf("expected 1 audit attempt, got %d", failing.calls)
			}
		})
	}
}

func TestRunAcceptsInvoiceNumberReusedAcrossUnitsAndDates(t *testing.T) {
	invoice := func(unit string, billDate time.Time) debtorimport.ImportRow {
		r := row(unit, "water", "100", billDate)
		r.InvoiceNumber = "INV-1"
		return r
	}
	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())

	result, err := svc.Run(context.Background(), RunRequest{
		ProjectID: testProject,
		Rows: []debtorimport.ImportRow{
			invoice("A101", day(2026, 1, 5)),
			invoice("A102", day(2026, 1, 5)),
			invoice("A101", day(2026, 2, 5)),
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success || result.Imported != 3 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	bills := f.bills.List(testProject)
	if len(bills) != 3 {
		t.Fatalf("expected 3 bills, got %d", len(bills))
	}
	for _, bill := range bills {
		if bill.BillNumber != "INV-1" {
			t.Fatalf("expected invoice number kept, got %s", bill.BillNumber)
		}
	}
	if got := len(f.ledger.List(testProject)); got != 6 {
		t.Fatalf("expected 6 ledger lines, got %d", got)
	}
}

func TestValidateDuplicateDetailWithRepeatedRowNumbers(t *testing.T) {
	first := row("A101", "water", "10", day(2026, 1, 5))
	first.RowNumber = 7
	second := row("A101", "water", "10", day(2026, 1, 5))
	second.RowNumber = 7

	f := newFixture()
	svc := f.service(t, nil, nil, DefaultConfig())
	report, err := svc.Validate(context.Background(), testProject, []debtorimport.ImportRow{first, second})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Valid || len(report.Errors) != 2 {
		t.Fatalf("expected both rows reported, got %+v", report)
	}
	for _, msg := range report.Errors {
		if !strings.HasSuffix(msg, "shared with rows 7") {
			t.Fatalf("expected sibling row in detail, got %q", msg)
		}
	}
}
