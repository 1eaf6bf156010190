package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sales-reconciliation-service/internal/channel"
	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/recon"
	"sales-reconciliation-service/internal/sources"
	"sales-reconciliation-service/internal/unifier"
	apperrors "sales-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

type fakeRunner struct {
	result *recon.Result
	err    error
	runs   int
}

func (f *fakeRunner) Run(ctx context.Context, ref time.Time) (*recon.Result, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func fakeResult() *recon.Result {
	window := fiscal.WindowFor(time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC), fiscal.DefaultStartMonth)
	aug := models.Month{Year: 2025, Mon: time.August}

	pivot := &sources.Pivot{
		Source: models.SourceActuals,
		Amounts: models.Amounts{
			{Month: aug, Channel: channel.Web}: decimal.NewFromInt(100),
		},
	}
	return &recon.Result{
		Window:   window,
		Resolved: unifier.Resolve(window, []*sources.Pivot{pivot}),
		StoredUnifiedDiff: []models.DiffRecord{
			{Month: aug, Channel: channel.Web.String(), Delta: decimal.NewFromInt(10)},
			{Month: aug, Channel: models.DiffTotalChannel, Delta: decimal.NewFromInt(10)},
		},
		MonthTotals: map[models.Month]decimal.Decimal{aug: decimal.NewFromInt(100)},
		Targets:     map[models.Month]decimal.Decimal{},
	}
}

func serve(t *testing.T, runner Runner, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(runner, nil)
	srv.now = func() time.Time {
		return time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	body := make(map[string]json.RawMessage)
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeRunner{result: fakeResult()}, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPivotEndpoint(t *testing.T) {
	runner := &fakeRunner{result: fakeResult()}
	rec := serve(t, runner, "/api/pivot")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if runner.runs != 1 {
		t.Errorf("expected exactly one reconciliation run, got %d", runner.runs)
	}

	body := decodeBody(t, rec)
	var rows []struct {
		Month  models.Month               `json:"month"`
		Total  decimal.Decimal            `json:"total"`
		Totals map[string]decimal.Decimal `json:"amounts"`
	}
	if err := json.Unmarshal(body["rows"], &rows); err != nil {
		t.Fatalf("rows did not decode: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 pivot rows, got %d", len(rows))
	}
	if !rows[0].Total.Equal(decimal.NewFromInt(100)) {
		t.Errorf("August total = %s, want 100", rows[0].Total)
	}
}

func TestPivotMonthFilter(t *testing.T) {
	rec := serve(t, &fakeRunner{result: fakeResult()}, "/api/pivot?month=2025-09-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	var rows []struct {
		Month models.Month `json:"month"`
	}
	if err := json.Unmarshal(body["rows"], &rows); err != nil {
		t.Fatalf("rows did not decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Month != (models.Month{Year: 2025, Mon: time.September}) {
		t.Fatalf("expected single September row, got %+v", rows)
	}
}

func TestInvalidMonthRejectedBeforeRunning(t *testing.T) {
	runner := &fakeRunner{result: fakeResult()}
	rec := serve(t, runner, "/api/pivot?month=2025-09-15")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400\n%s", rec.Code, rec.Body.String())
	}
	if runner.runs != 0 {
		t.Errorf("invalid month must be rejected before querying, got %d runs", runner.runs)
	}

	body := decodeBody(t, rec)
	var code string
	if err := json.Unmarshal(body["code"], &code); err != nil || code != string(apperrors.CodeInvalidMonth) {
		t.Errorf("error code = %q, want %q", code, apperrors.CodeInvalidMonth)
	}
}

func TestMonthOutsideWindowRejected(t *testing.T) {
	rec := serve(t, &fakeRunner{result: fakeResult()}, "/api/pivot?month=2024-01-01")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400\n%s", rec.Code, rec.Body.String())
	}
}

func TestDiffsOnlyNonZeroFlag(t *testing.T) {
	sparse := serve(t, &fakeRunner{result: fakeResult()}, "/api/diffs")
	if sparse.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", sparse.Code, sparse.Body.String())
	}
	var sparseRecords []models.DiffRecord
	if err := json.Unmarshal(decodeBody(t, sparse)["stored_unified_diff"], &sparseRecords); err != nil {
		t.Fatalf("diff did not decode: %v", err)
	}
	if len(sparseRecords) != 2 {
		t.Fatalf("sparse diff has %d records, want 2", len(sparseRecords))
	}

	full := serve(t, &fakeRunner{result: fakeResult()}, "/api/diffs?only_nonzero=false")
	var fullRecords []models.DiffRecord
	if err := json.Unmarshal(decodeBody(t, full)["stored_unified_diff"], &fullRecords); err != nil {
		t.Fatalf("diff did not decode: %v", err)
	}
	if want := 12 * (len(channel.All()) + 1); len(fullRecords) != want {
		t.Fatalf("expanded diff has %d records, want %d", len(fullRecords), want)
	}
}

func TestSourceFailureMapsTo502(t *testing.T) {
	runner := &fakeRunner{err: apperrors.SourceError(apperrors.CodeQueryFailed, "final", nil)}
	rec := serve(t, runner, "/api/pivot")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502\n%s", rec.Code, rec.Body.String())
	}
}

func TestConsistencyViolationMapsTo409(t *testing.T) {
	ce := &recon.ConsistencyError{
		WindowLabel: "FY26",
		Discrepancies: []models.MonthDiscrepancy{{
			Month:       models.Month{Year: 2025, Mon: time.September},
			ChannelSum:  decimal.NewFromInt(150),
			StatedTotal: decimal.NewFromInt(140),
			Discrepancy: decimal.NewFromInt(10),
		}},
	}
	runner := &fakeRunner{err: apperrors.ReconciliationError(apperrors.CodeChannelSumMismatch, "invariant_check", ce)}

	rec := serve(t, runner, "/api/pivot")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409\n%s", rec.Code, rec.Body.String())
	}
	var discrepancies []models.MonthDiscrepancy
	if err := json.Unmarshal(decodeBody(t, rec)["discrepancies"], &discrepancies); err != nil {
		t.Fatalf("discrepancies did not decode: %v", err)
	}
	if len(discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy in body, got %d", len(discrepancies))
	}
}

func TestConsistencyEndpointReportsViolationAsData(t *testing.T) {
	ce := &recon.ConsistencyError{
		WindowLabel: "FY26",
		Discrepancies: []models.MonthDiscrepancy{{
			Month:       models.Month{Year: 2025, Mon: time.September},
			ChannelSum:  decimal.NewFromInt(150),
			StatedTotal: decimal.NewFromInt(140),
			Discrepancy: decimal.NewFromInt(10),
		}},
	}
	runner := &fakeRunner{err: apperrors.ReconciliationError(apperrors.CodeChannelSumMismatch, "invariant_check", ce)}

	rec := serve(t, runner, "/api/consistency")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	var consistent bool
	if err := json.Unmarshal(body["consistent"], &consistent); err != nil || consistent {
		t.Errorf("consistent = %v, want false", consistent)
	}
}

func TestConsistencyEndpointClean(t *testing.T) {
	rec := serve(t, &fakeRunner{result: fakeResult()}, "/api/consistency")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	var consistent bool
	if err := json.Unmarshal(decodeBody(t, rec)["consistent"], &consistent); err != nil || !consistent {
		t.Errorf("consistent = %v, want true", consistent)
	}
}

func TestAuditEndpoint(t *testing.T) {
	result := fakeResult()
	result.Unclassified = []models.UnclassifiedLabel{{
		Source:    models.SourceComputed,
		RawLabel:  "marketplace-x",
		FirstSeen: models.Month{Year: 2025, Mon: time.August},
		LastSeen:  models.Month{Year: 2025, Mon: time.August},
		Total:     decimal.NewFromInt(12),
		Rows:      1,
	}}

	rec := serve(t, &fakeRunner{result: result}, "/api/audit")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	var labels []models.UnclassifiedLabel
	if err := json.Unmarshal(decodeBody(t, rec)["unclassified"], &labels); err != nil {
		t.Fatalf("audit did not decode: %v", err)
	}
	if len(labels) != 1 || labels[0].RawLabel != "marketplace-x" {
		t.Fatalf("unexpected audit body: %+v", labels)
	}
}
