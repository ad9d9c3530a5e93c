package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/inmem"
	"github.com/dukerupert/safecheck/internal/metrics"
	"github.com/dukerupert/safecheck/kv"
	"github.com/dukerupert/safecheck/mock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	inspector  = safecheck.User{Name: "J.Doe", Role: safecheck.RoleInspector}
	colleague  = safecheck.User{Name: "K.Lee", Role: safecheck.RoleInspector}
	supervisor = safecheck.User{Name: "S.Smith", Role: safecheck.RoleSupervisor}
	admin      = safecheck.User{Name: "A.Admin", Role: safecheck.RoleAdmin}
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *InspectionService
	store    *inmem.Store
	notifier *mock.Notifier
	metrics  *metrics.Metrics
	getAlls  *atomic.Int64
}

func newFixture(t *testing.T, policy safecheck.RejectionPolicy) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store := inmem.NewStore()
	repo := kv.NewRepository(store, logger)

	// Count full loads so cache behaviour can be observed.
	var getAlls atomic.Int64
	counting := &mock.InspectionRepository{
		GetAllFn: func(ctx context.Context, kind safecheck.Kind) ([]*safecheck.Inspection, error) {
			getAlls.Add(1)
			return repo.GetAll(ctx, kind)
		},
		FindByIDFn: repo.FindByID,
		UpsertFn:   repo.Upsert,
		DeleteFn:   repo.Delete,
	}

	notifier := &mock.Notifier{}
	m := metrics.New()
	svc := NewInspectionService(counting, notifier, m, logger, Config{
		Rejection:        policy,
		SupervisorEmails: []string{"supervisors@example.com"},
		AdminEmails:      []string{"admins@example.com"},
		InspectorEmails:  map[string]string{"J.Doe": "jdoe@example.com"},
		Now:              func() time.Time { return testNow },
	})
	return &fixture{svc: svc, store: store, notifier: notifier, metrics: m, getAlls: &getAlls}
}

func (f *fixture) createHSE(t *testing.T, user safecheck.User) *safecheck.Inspection {
	t.Helper()
	rec, err := f.svc.CreateInspection(context.Background(), user, safecheck.KindHSE, safecheck.Header{
		Contractor: "Acme Scaffolding",
		Location:   "Block C",
		Date:       "2024-03-15",
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) rateAll(t *testing.T, user safecheck.User, rec *safecheck.Inspection, rating safecheck.Rating) *safecheck.Inspection {
	t.Helper()
	ctx := context.Background()
	for _, item := range rec.Items {
		r := rating
		var err error
		rec, err = f.svc.UpdateItem(ctx, user, rec.Kind, rec.ID, item.ID, safecheck.ItemUpdate{Rating: &r})
		require.NoError(t, err)
	}
	return rec
}

func (f *fixture) submittedHSE(t *testing.T) *safecheck.Inspection {
	t.Helper()
	rec := f.rateAll(t, inspector, f.createHSE(t, inspector), safecheck.RatingGood)
	rec, err := f.svc.SubmitInspection(context.Background(), inspector, rec.Kind, rec.ID)
	require.NoError(t, err)
	return rec
}

func TestInspectionService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)

	rec := f.createHSE(t, inspector)
	assert.Equal(t, safecheck.InspectionStatusDraft, rec.Status)
	assert.Equal(t, int64(1), rec.Revision)

	drafts, err := f.store.Get(ctx, safecheck.KindHSE.DraftKey())
	require.NoError(t, err)
	assert.Contains(t, string(drafts.Value), rec.ID.String())

	rec = f.submittedHSE(t)
	assert.Equal(t, safecheck.InspectionStatusSubmitted, rec.Status)

	saved, err := f.store.Get(ctx, safecheck.KindHSE.CollectionKey())
	require.NoError(t, err)
	assert.Contains(t, string(saved.Value), rec.ID.String())

	rec, err = f.svc.ApproveInspection(ctx, supervisor, rec.Kind, rec.ID, "Looks good")
	require.NoError(t, err)
	assert.Equal(t, safecheck.InspectionStatusSupervisorApproved, rec.Status)

	rec, err = f.svc.ApproveInspection(ctx, admin, rec.Kind, rec.ID, "")
	require.NoError(t, err)
	assert.Equal(t, safecheck.InspectionStatusAdminApproved, rec.Status)
	require.NotNil(t, rec.SupervisorApproval)
	require.NotNil(t, rec.AdminApproval)
	assert.Equal(t, "S.Smith", rec.SupervisorApproval.ApprovedBy)
	assert.Equal(t, "A.Admin", rec.AdminApproval.ApprovedBy)

	sent := f.notifier.Notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, "submitted", sent[0].Type)
	assert.Equal(t, []string{"supervisors@example.com"}, sent[0].To)
	assert.Equal(t, "supervisor_approved", sent[1].Type)
	assert.Equal(t, []string{"admins@example.com"}, sent[1].To)

	// created, item_rated, submitted, supervisor_approve, admin_approve
	assert.Equal(t, 5, testutil.CollectAndCount(f.metrics.Registry(), "safecheck_transitions_total"))

	// Persisted copy matches what was returned.
	got, err := f.svc.FindInspectionByID(ctx, admin, rec.Kind, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Revision, got.Revision)
	assert.Equal(t, rec.Status, got.Status)
}

func TestInspectionService_SubmitIncomplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)

	rec, err := f.svc.CreateInspection(ctx, inspector, safecheck.KindFirstAid, safecheck.Header{Building: "HQ"})
	require.NoError(t, err)

	_, err = f.svc.SubmitInspection(ctx, inspector, rec.Kind, rec.ID)
	require.Error(t, err)

	var ve *safecheck.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t, []string{"floor", "location", "kitId", "date"}, ve.MissingFields)
	assert.Equal(t, 16, ve.UnratedCount)
	assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))

	// The stored record is untouched.
	got, err := f.svc.FindInspectionByID(ctx, inspector, rec.Kind, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, safecheck.InspectionStatusDraft, got.Status)
	assert.Equal(t, rec.Revision, got.Revision)

	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.Registry(), "safecheck_validation_failures_total"))
	assert.Empty(t, f.notifier.Notifications())
}

func TestInspectionService_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)

	mine := f.createHSE(t, inspector)
	f.createHSE(t, colleague)

	_, err := f.svc.FindInspectionByID(ctx, colleague, mine.Kind, mine.ID)
	assert.Equal(t, safecheck.ENOTFOUND, safecheck.ErrorCode(err))

	_, err = f.svc.UpdateHeader(ctx, colleague, mine.Kind, mine.ID, safecheck.HeaderUpdate{})
	assert.Equal(t, safecheck.ENOTFOUND, safecheck.ErrorCode(err))

	summaries, total, err := f.svc.FindInspections(ctx, inspector, safecheck.SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	assert.Equal(t, mine.ID, summaries[0].ID)

	_, total, err = f.svc.FindInspections(ctx, supervisor, safecheck.SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, _, err = f.svc.FindInspections(ctx, safecheck.User{}, safecheck.SummaryFilter{})
	assert.Equal(t, safecheck.EUNAUTHORIZED, safecheck.ErrorCode(err))
}

func TestInspectionService_UpdateAfterSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	rec := f.submittedHSE(t)

	rating := safecheck.RatingPoor
	_, err := f.svc.UpdateItem(ctx, inspector, rec.Kind, rec.ID, rec.Items[0].ID, safecheck.ItemUpdate{Rating: &rating})
	assert.Equal(t, safecheck.ESTATE, safecheck.ErrorCode(err))

	loc := "Block D"
	_, err = f.svc.UpdateHeader(ctx, inspector, rec.Kind, rec.ID, safecheck.HeaderUpdate{Location: &loc})
	assert.Equal(t, safecheck.ESTATE, safecheck.ErrorCode(err))
}

func TestInspectionService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("keep status", func(t *testing.T) {
		f := newFixture(t, safecheck.RejectKeepStatus)
		rec := f.submittedHSE(t)

		_, err := f.svc.RejectInspection(ctx, supervisor, rec.Kind, rec.ID, "  ")
		assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))

		rec, err = f.svc.RejectInspection(ctx, supervisor, rec.Kind, rec.ID, "Photos missing")
		require.NoError(t, err)
		assert.Equal(t, safecheck.InspectionStatusSubmitted, rec.Status)
		assert.Equal(t, safecheck.ActionSupervisorReject, rec.AuditLog[len(rec.AuditLog)-1].Action)

		sent := f.notifier.Notifications()
		require.Len(t, sent, 2)
		assert.Equal(t, "rejected", sent[1].Type)
		assert.Equal(t, []string{"jdoe@example.com"}, sent[1].To)
		assert.Equal(t, "S.Smith", sent[1].By)
		assert.Equal(t, "Photos missing", sent[1].Comments)
	})

	t.Run("return to draft", func(t *testing.T) {
		f := newFixture(t, safecheck.RejectReturnToDraft)
		rec := f.submittedHSE(t)

		rec, err := f.svc.RejectInspection(ctx, supervisor, rec.Kind, rec.ID, "Wrong contractor")
		require.NoError(t, err)
		assert.Equal(t, safecheck.InspectionStatusDraft, rec.Status)

		contractor := "Acme Formwork"
		rec, err = f.svc.UpdateHeader(ctx, inspector, rec.Kind, rec.ID, safecheck.HeaderUpdate{Contractor: &contractor})
		require.NoError(t, err)
		assert.Equal(t, "Acme Formwork", rec.Contractor)

		// Back in drafts: the submitted collection no longer holds it.
		saved, err := f.store.Get(ctx, safecheck.KindHSE.CollectionKey())
		require.NoError(t, err)
		assert.NotContains(t, string(saved.Value), rec.ID.String())
	})
}

func TestInspectionService_NotificationFailure(t *testing.T) {
	f := newFixture(t, safecheck.RejectKeepStatus)
	f.notifier.NotifySubmittedFn = func(ctx context.Context, to []string, rec *safecheck.Inspection) error {
		return errors.New("smtp down")
	}

	rec := f.submittedHSE(t)
	assert.Equal(t, safecheck.InspectionStatusSubmitted, rec.Status)
}

func TestInspectionService_Permissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	rec := f.submittedHSE(t)

	_, err := f.svc.ApproveInspection(ctx, admin, rec.Kind, rec.ID, "")
	assert.Equal(t, safecheck.EFORBIDDEN, safecheck.ErrorCode(err))

	err = f.svc.DeleteInspection(ctx, supervisor, rec.Kind, rec.ID)
	assert.Equal(t, safecheck.EFORBIDDEN, safecheck.ErrorCode(err))

	_, err = f.svc.GetAuditTrail(ctx, inspector, safecheck.AuditFilter{})
	assert.Equal(t, safecheck.EFORBIDDEN, safecheck.ErrorCode(err))

	readOnly := safecheck.User{Name: "J.Doe", Role: safecheck.RoleInspector, Permissions: []safecheck.Permission{safecheck.PermSubmit}}
	_, err = f.svc.ListReports(ctx, readOnly, safecheck.SummaryFilter{})
	assert.Equal(t, safecheck.EFORBIDDEN, safecheck.ErrorCode(err))

	require.NoError(t, f.svc.DeleteInspection(ctx, admin, rec.Kind, rec.ID))
	_, err = f.svc.FindInspectionByID(ctx, admin, rec.Kind, rec.ID)
	assert.Equal(t, safecheck.ENOTFOUND, safecheck.ErrorCode(err))

	err = f.svc.DeleteInspection(ctx, admin, rec.Kind, uuid.New())
	assert.Equal(t, safecheck.ENOTFOUND, safecheck.ErrorCode(err))

	_, err = f.svc.CreateInspection(ctx, inspector, safecheck.Kind("boiler"), safecheck.Header{})
	assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))
}

func TestInspectionService_AuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	rec := f.submittedHSE(t)

	trail, err := f.svc.GetAuditTrail(ctx, supervisor, safecheck.AuditFilter{})
	require.NoError(t, err)
	// created + one entry per rated item + submitted
	assert.Len(t, trail, 1+len(rec.Items)+1)

	trail, err = f.svc.GetAuditTrail(ctx, supervisor, safecheck.AuditFilter{Action: "submit"})
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, rec.ID, trail[0].InspectionID)
}

func TestInspectionService_Reports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	rec := f.submittedHSE(t)
	f.createHSE(t, colleague)

	report, err := f.svc.GetInspectionReport(ctx, inspector, rec.Kind, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Stats.ComplianceRate)
	assert.Equal(t, safecheck.ConditionPassed, report.Condition)
	assert.Equal(t, testNow, report.GeneratedAt)

	reports, err := f.svc.ListReports(ctx, inspector, safecheck.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, rec.ID, reports[0].Inspection.ID)

	reports, err = f.svc.ListReports(ctx, admin, safecheck.SummaryFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestInspectionService_AnalyticsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	f.submittedHSE(t)

	loads := func() int64 { return f.getAlls.Load() }

	before := loads()
	summary, err := f.svc.GetAnalytics(ctx, supervisor, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalInspections)
	assert.Equal(t, 1, summary.PendingApprovals)
	afterFirst := loads()
	assert.Greater(t, afterFirst, before)

	_, err = f.svc.GetAnalytics(ctx, supervisor, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Equal(t, afterFirst, loads(), "second call should be served from cache")

	// A write flushes the cache.
	f.createHSE(t, colleague)
	summary, err = f.svc.GetAnalytics(ctx, supervisor, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Greater(t, loads(), afterFirst)
	assert.Equal(t, 1, summary.TotalInspections)

	// Inspectors only aggregate what they can see.
	summary, err = f.svc.GetAnalytics(ctx, colleague, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalInspections)
	summary, err = f.svc.GetAnalytics(ctx, inspector, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalInspections)

	_, err = f.svc.GetAnalytics(ctx, supervisor, safecheck.AnalyticsFilter{Window: 14})
	assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))
}

func TestInspectionService_AnalyticsSkipsDrafts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, safecheck.RejectKeepStatus)
	submitted := f.submittedHSE(t)
	f.createHSE(t, inspector)

	summary, err := f.svc.GetAnalytics(ctx, supervisor, safecheck.AnalyticsFilter{Window: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalInspections)
	assert.Equal(t, map[safecheck.InspectionStatus]int{safecheck.InspectionStatusSubmitted: 1}, summary.ByStatus)
	assert.Equal(t, len(submitted.Items), summary.TotalItems)
	assert.Equal(t, len(submitted.Items), summary.CompletedItems)
}
