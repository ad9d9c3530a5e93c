package safecheck

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	inspector  = User{Name: "J.Doe", Role: RoleInspector}
	supervisor = User{Name: "S.Smith", Role: RoleSupervisor}
	admin      = User{Name: "A.Admin", Role: RoleAdmin}
)

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func testWorkflow(policy RejectionPolicy) *Workflow {
	return &Workflow{Rejection: policy, Now: func() time.Time { return testNow }}
}

func rateAll(t *testing.T, w *Workflow, rec *Inspection, user User, rating Rating) *Inspection {
	t.Helper()
	for _, item := range rec.Items {
		var err error
		rec, err = w.RateItem(rec, user, item.ID, rating)
		require.NoError(t, err)
	}
	return rec
}

func newHSE(t *testing.T, w *Workflow) *Inspection {
	t.Helper()
	rec, err := w.Create(inspector, KindHSE, Header{Contractor: "Acme", Location: "Site A", Date: "2024-01-01"})
	require.NoError(t, err)
	return rec
}

func submittedHSE(t *testing.T, w *Workflow) *Inspection {
	t.Helper()
	rec := rateAll(t, w, newHSE(t, w), inspector, RatingGood)
	rec, err := w.Submit(rec, inspector)
	require.NoError(t, err)
	return rec
}

func TestWorkflow_Create(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)

	rec := newHSE(t, w)
	assert.Equal(t, InspectionStatusDraft, rec.Status)
	assert.Equal(t, "J.Doe", rec.InspectedBy)
	assert.Len(t, rec.Items, 25)
	assert.Equal(t, testNow, rec.CreatedAt)
	assert.Nil(t, rec.SavedAt)
	require.Len(t, rec.AuditLog, 1)
	assert.Equal(t, ActionCreated, rec.AuditLog[0].Action)
	assert.Equal(t, "J.Doe", rec.AuditLog[0].User)
}

func TestWorkflow_Create_Errors(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)

	_, err := w.Create(User{}, KindHSE, Header{})
	assert.Equal(t, EUNAUTHORIZED, ErrorCode(err))

	_, err = w.Create(inspector, Kind("boiler"), Header{})
	assert.Equal(t, EINVALID, ErrorCode(err))

	_, err = w.Create(inspector, KindFireExtinguisher, Header{Contractor: "Acme"})
	assert.Equal(t, EINVALID, ErrorCode(err))
	assert.Contains(t, ErrorFields(err), "contractor")
}

func TestWorkflow_SubmitHSE(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)

	rec := rateAll(t, w, newHSE(t, w), inspector, RatingGood)
	submitted, err := w.Submit(rec, inspector)
	require.NoError(t, err)

	assert.Equal(t, InspectionStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SavedAt)
	assert.Equal(t, testNow, *submitted.SavedAt)

	stats := submitted.Stats(testNow)
	assert.Equal(t, 100, stats.ComplianceRate)
	assert.Equal(t, 0, stats.CriticalCount)
	assert.Equal(t, 25, stats.Completed)

	last := submitted.AuditLog[len(submitted.AuditLog)-1]
	assert.Equal(t, ActionSubmitted, last.Action)

	// The input record is untouched.
	assert.Equal(t, InspectionStatusDraft, rec.Status)
	assert.Nil(t, rec.SavedAt)
}

func TestWorkflow_SubmitValidation(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)

	rec, err := w.Create(inspector, KindHSE, Header{Location: "   "})
	require.NoError(t, err)
	for _, id := range []string{"hse-01", "hse-02", "hse-03"} {
		rec, err = w.RateItem(rec, inspector, id, RatingGood)
		require.NoError(t, err)
	}
	before := rec.Clone()

	_, err = w.Submit(rec, inspector)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"contractor", "location", "date"}, verr.MissingFields)
	assert.Equal(t, 22, verr.UnratedCount)
	assert.Equal(t, EINVALID, ErrorCode(err))
	assert.Equal(t, "is required", ErrorFields(err)["contractor"])
	assert.Equal(t, "22 item(s) not rated", ErrorFields(err)["items"])

	assert.Equal(t, before, rec)
}

func TestWorkflow_SubmitPermissions(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := rateAll(t, w, newHSE(t, w), inspector, RatingGood)

	_, err := w.Submit(rec, User{Name: "Other", Role: RoleInspector})
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	_, err = w.Submit(rec, User{Name: "J.Doe", Role: RoleInspector, Permissions: []Permission{PermExport}})
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	submitted, err := w.Submit(rec, inspector)
	require.NoError(t, err)

	_, err = w.Submit(submitted, inspector)
	assert.Equal(t, ESTATE, ErrorCode(err))
}

func TestWorkflow_ImmutableAfterSubmit(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := submittedHSE(t, w)
	before := rec.Clone()

	_, err := w.RateItem(rec, inspector, "hse-01", RatingPoor)
	assert.Equal(t, ESTATE, ErrorCode(err))

	comment := "changed"
	_, err = w.UpdateItem(rec, inspector, "hse-01", ItemUpdate{Comments: &comment})
	assert.Equal(t, ESTATE, ErrorCode(err))

	contractor := "Other Co"
	_, err = w.UpdateHeader(rec, inspector, HeaderUpdate{Contractor: &contractor})
	assert.Equal(t, ESTATE, ErrorCode(err))

	assert.Equal(t, before, rec)
}

func TestWorkflow_ApprovalChain(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := submittedHSE(t, w)
	n := len(rec.AuditLog)

	approved, err := w.Approve(rec, supervisor, "ok")
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusSupervisorApproved, approved.Status)
	require.NotNil(t, approved.SupervisorApproval)
	assert.Equal(t, "S.Smith", approved.SupervisorApproval.ApprovedBy)
	assert.Equal(t, "ok", approved.SupervisorApproval.Comments)
	require.Len(t, approved.AuditLog, n+1)
	assert.Equal(t, ActionSupervisorApprove, approved.AuditLog[n].Action)

	final, err := w.Approve(approved, admin, "")
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusAdminApproved, final.Status)
	require.NotNil(t, final.AdminApproval)
	assert.Equal(t, "A.Admin", final.AdminApproval.ApprovedBy)
	require.Len(t, final.AuditLog, n+2)
	assert.Equal(t, ActionAdminApprove, final.AuditLog[n+1].Action)

	// Earlier state is untouched.
	assert.Equal(t, approved.AuditLog, final.AuditLog[:n+1])
	assert.Equal(t, approved.SupervisorApproval, final.SupervisorApproval)

	_, err = w.Approve(final, admin, "")
	assert.Equal(t, ESTATE, ErrorCode(err))
}

func TestWorkflow_ApproveGuards(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)

	draft := newHSE(t, w)
	_, err := w.Approve(draft, admin, "")
	assert.Equal(t, ESTATE, ErrorCode(err))

	submitted := submittedHSE(t, w)
	_, err = w.Approve(submitted, inspector, "")
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	_, err = w.Approve(submitted, admin, "")
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	approved, err := w.Approve(submitted, supervisor, "")
	require.NoError(t, err)
	_, err = w.Approve(approved, supervisor, "")
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	completed := approved.Clone()
	completed.Status = InspectionStatusCompleted
	_, err = w.Approve(completed, admin, "")
	assert.Equal(t, ESTATE, ErrorCode(err))
	_, err = w.Reject(completed, admin, "no")
	assert.Equal(t, ESTATE, ErrorCode(err))
}

func TestWorkflow_RejectKeepStatus(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := submittedHSE(t, w)

	_, err := w.Reject(rec, supervisor, "  ")
	assert.Equal(t, EINVALID, ErrorCode(err))
	assert.Contains(t, ErrorFields(err), "comments")

	rejected, err := w.Reject(rec, supervisor, "photos missing")
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusSubmitted, rejected.Status)
	last := rejected.AuditLog[len(rejected.AuditLog)-1]
	assert.Equal(t, ActionSupervisorReject, last.Action)
	assert.Contains(t, last.Details, "photos missing")

	approved, err := w.Approve(rejected, supervisor, "fixed")
	require.NoError(t, err)
	adminRejected, err := w.Reject(approved, admin, "wrong site")
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusSupervisorApproved, adminRejected.Status)
	assert.NotNil(t, adminRejected.SupervisorApproval)
	assert.Equal(t, ActionAdminReject, adminRejected.AuditLog[len(adminRejected.AuditLog)-1].Action)
}

func TestWorkflow_RejectReturnToDraft(t *testing.T) {
	w := testWorkflow(RejectReturnToDraft)
	rec := submittedHSE(t, w)

	approved, err := w.Approve(rec, supervisor, "ok")
	require.NoError(t, err)

	rejected, err := w.Reject(approved, admin, "redo")
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusDraft, rejected.Status)
	assert.Nil(t, rejected.SupervisorApproval)
	assert.Nil(t, rejected.AdminApproval)
	assert.True(t, rejected.IsEditable())

	edited, err := w.RateItem(rejected, inspector, "hse-01", RatingAcceptable)
	require.NoError(t, err)
	resubmitted, err := w.Submit(edited, inspector)
	require.NoError(t, err)
	assert.Equal(t, InspectionStatusSubmitted, resubmitted.Status)
}

func TestWorkflow_FireExtinguisherFail(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec, err := w.Create(inspector, KindFireExtinguisher, Header{
		Building:         "HQ",
		Floor:            "2",
		Location:         "Stairwell B",
		SerialNumber:     "FE-1001",
		ExtinguisherType: "CO2",
		Date:             "2024-01-01",
	})
	require.NoError(t, err)
	require.Len(t, rec.Items, 22)

	rec = rateAll(t, w, rec, inspector, RatingPass)
	rec, err = w.RateItem(rec, inspector, "fe-05", RatingFail)
	require.NoError(t, err)

	rec, err = w.Submit(rec, inspector)
	require.NoError(t, err)

	item := rec.Items[rec.Item("fe-05")]
	assert.True(t, item.RequiresAction)
	stats := rec.Stats(testNow)
	assert.Equal(t, 1, stats.CriticalCount)
	assert.Equal(t, ConditionNeedsAttention, ConditionOf(stats))
}

func TestWorkflow_FirstAidQuantityInference(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec, err := w.Create(inspector, KindFirstAid, Header{})
	require.NoError(t, err)

	idx := rec.Item("fa-01")
	require.Equal(t, 20, rec.Items[idx].RequiredQuantity)

	setQty := func(rec *Inspection, n int) *Inspection {
		out, err := w.UpdateItem(rec, inspector, "fa-01", ItemUpdate{CurrentQuantity: &n})
		require.NoError(t, err)
		return out
	}

	rec = setQty(rec, 0)
	assert.Equal(t, StatusMissing, rec.Items[idx].Rating)
	assert.True(t, rec.Items[idx].RequiresAction)

	rec = setQty(rec, 5)
	assert.Equal(t, StatusLow, rec.Items[idx].Rating)
	assert.True(t, rec.Items[idx].RequiresAction)

	rec = setQty(rec, 15)
	assert.Equal(t, StatusGood, rec.Items[idx].Rating)
	assert.False(t, rec.Items[idx].RequiresAction)
}

func TestWorkflow_UpdateItemErrors(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	hse := newHSE(t, w)

	_, err := w.RateItem(hse, inspector, "hse-01", RatingPass)
	assert.Equal(t, EINVALID, ErrorCode(err))
	assert.Contains(t, ErrorFields(err), "rating")

	_, err = w.RateItem(hse, inspector, "hse-99", RatingGood)
	assert.Equal(t, ENOTFOUND, ErrorCode(err))

	_, err = w.RateItem(hse, User{Name: "Other", Role: RoleInspector}, "hse-01", RatingGood)
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	_, err = w.UpdateItem(hse, inspector, "hse-01", ItemUpdate{})
	assert.Equal(t, EINVALID, ErrorCode(err))

	fa, err := w.Create(inspector, KindFirstAid, Header{})
	require.NoError(t, err)

	qty := 3
	_, err = w.UpdateItem(fa, inspector, "fa-14", ItemUpdate{CurrentQuantity: &qty})
	assert.Equal(t, EINVALID, ErrorCode(err))

	neg := -1
	_, err = w.UpdateItem(fa, inspector, "fa-01", ItemUpdate{CurrentQuantity: &neg})
	assert.Equal(t, EINVALID, ErrorCode(err))

	bad := "31/12/2024"
	_, err = w.UpdateItem(fa, inspector, "fa-01", ItemUpdate{ExpiryDate: &bad})
	assert.Equal(t, EINVALID, ErrorCode(err))
}

func TestWorkflow_ExpiredFirstAidItem(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec, err := w.Create(inspector, KindFirstAid, Header{})
	require.NoError(t, err)

	past := "2023-12-31"
	rec, err = w.UpdateItem(rec, inspector, "fa-02", ItemUpdate{ExpiryDate: &past})
	require.NoError(t, err)
	assert.True(t, rec.Items[rec.Item("fa-02")].RequiresAction)

	today := "2024-01-01"
	rec, err = w.UpdateItem(rec, inspector, "fa-02", ItemUpdate{ExpiryDate: &today})
	require.NoError(t, err)
	assert.False(t, rec.Items[rec.Item("fa-02")].RequiresAction)
}

func TestWorkflow_UpdateHeader(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := newHSE(t, w)

	location := "Site B"
	updated, err := w.UpdateHeader(rec, inspector, HeaderUpdate{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Site B", updated.Location)
	assert.Equal(t, "Site A", rec.Location)
	assert.Equal(t, ActionHeaderUpdated, updated.AuditLog[len(updated.AuditLog)-1].Action)

	building := "HQ"
	_, err = w.UpdateHeader(rec, inspector, HeaderUpdate{Building: &building})
	assert.Equal(t, EINVALID, ErrorCode(err))

	date := "01/01/2024"
	_, err = w.UpdateHeader(rec, inspector, HeaderUpdate{Date: &date})
	assert.Equal(t, EINVALID, ErrorCode(err))

	_, err = w.UpdateHeader(rec, inspector, HeaderUpdate{})
	assert.Equal(t, EINVALID, ErrorCode(err))
}

func TestWorkflow_InspectedByReassignment(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := newHSE(t, w)

	other := "K.Lee"
	_, err := w.UpdateHeader(rec, inspector, HeaderUpdate{InspectedBy: &other})
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	same := inspector.Name
	_, err = w.UpdateHeader(rec, inspector, HeaderUpdate{InspectedBy: &same})
	require.NoError(t, err)

	_, err = w.Create(inspector, KindHSE, Header{InspectedBy: other, Date: "2024-01-01"})
	assert.Equal(t, EFORBIDDEN, ErrorCode(err))

	updated, err := w.UpdateHeader(rec, supervisor, HeaderUpdate{InspectedBy: &other})
	require.NoError(t, err)
	assert.Equal(t, "K.Lee", updated.InspectedBy)
}

func TestWorkflow_AuditAppendOnly(t *testing.T) {
	w := testWorkflow(RejectKeepStatus)
	rec := newHSE(t, w)

	var history [][]AuditEntry
	record := func(r *Inspection) {
		history = append(history, append([]AuditEntry(nil), r.AuditLog...))
	}
	record(rec)

	rec = rateAll(t, w, rec, inspector, RatingGood)
	record(rec)
	rec, err := w.Submit(rec, inspector)
	require.NoError(t, err)
	record(rec)
	rec, err = w.Reject(rec, supervisor, "again")
	require.NoError(t, err)
	record(rec)
	rec, err = w.Approve(rec, supervisor, "")
	require.NoError(t, err)
	record(rec)

	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		require.GreaterOrEqual(t, len(cur), len(prev))
		assert.Equal(t, prev, cur[:len(prev)])
	}
}

func TestParseRejectionPolicy(t *testing.T) {
	p, err := ParseRejectionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejectKeepStatus, p)

	p, err = ParseRejectionPolicy("draft")
	require.NoError(t, err)
	assert.Equal(t, RejectReturnToDraft, p)

	_, err = ParseRejectionPolicy("rejected")
	assert.Equal(t, EINVALID, ErrorCode(err))
}

func TestInspectionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to InspectionStatus
		want     bool
	}{
		{InspectionStatusDraft, InspectionStatusSubmitted, true},
		{InspectionStatusDraft, InspectionStatusSupervisorApproved, false},
		{InspectionStatusSubmitted, InspectionStatusSupervisorApproved, true},
		{InspectionStatusSubmitted, InspectionStatusAdminApproved, false},
		{InspectionStatusSupervisorApproved, InspectionStatusAdminApproved, true},
		{InspectionStatusAdminApproved, InspectionStatusCompleted, true},
		{InspectionStatusCompleted, InspectionStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
