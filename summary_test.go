package safecheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSummaries_Visibility(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mine := record(t, KindHSE, InspectionStatusSubmitted, t0, RatingGood)
	mine.Contractor = "Acme"
	theirs := record(t, KindFirstAid, InspectionStatusDraft, t0.Add(time.Hour))
	theirs.InspectedBy = "K.Lee"
	newest := record(t, KindFireExtinguisher, InspectionStatusDraft, t0.Add(2*time.Hour))

	records := []*Inspection{mine, theirs, newest}

	rows, total := ListSummaries(inspector, records, SummaryFilter{})
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, mine.ID, rows[1].ID)
	assert.Equal(t, "Acme", rows[1].Label)

	rows, total = ListSummaries(supervisor, records, SummaryFilter{})
	assert.Equal(t, 3, total)
	assert.Len(t, rows, 3)
}

func TestListSummaries_FilterAndPaginate(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var records []*Inspection
	for i := 0; i < 5; i++ {
		records = append(records, record(t, KindHSE, InspectionStatusSubmitted, t0.Add(time.Duration(i)*time.Hour)))
	}
	records = append(records, record(t, KindHSE, InspectionStatusDraft, t0))

	status := InspectionStatusSubmitted
	rows, total := ListSummaries(admin, records, SummaryFilter{Status: &status, Offset: 1, Limit: 2})
	assert.Equal(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, records[3].ID, rows[0].ID)
	assert.Equal(t, records[2].ID, rows[1].ID)

	rows, total = ListSummaries(admin, records, SummaryFilter{Offset: 10})
	assert.Equal(t, 6, total)
	assert.Empty(t, rows)

	kind := KindFirstAid
	_, total = ListSummaries(admin, records, SummaryFilter{Kind: &kind})
	assert.Equal(t, 0, total)
}

func TestSummarize(t *testing.T) {
	rec := record(t, KindFireExtinguisher, InspectionStatusSubmitted, testNow, RatingPass, RatingFail)
	s := Summarize(rec)

	assert.Equal(t, KindFireExtinguisher, s.Kind)
	assert.Equal(t, "Site", s.Label)
	assert.Equal(t, 1, s.CriticalIssueCount)
	assert.Equal(t, 9, s.CompletionRate)
	assert.Equal(t, 50, s.ComplianceRate)
	assert.Equal(t, ConditionNeedsAttention, s.Condition)
}

func TestUser_Can(t *testing.T) {
	assert.True(t, inspector.Can(PermSubmit))
	assert.False(t, inspector.Can(PermViewAll))
	assert.True(t, supervisor.Can(PermSupervisorReview))
	assert.False(t, supervisor.Can(PermAdminReview))
	assert.True(t, admin.Can(PermDelete))

	custom := User{Name: "X", Role: RoleInspector, Permissions: []Permission{PermViewAll}}
	assert.True(t, custom.Can(PermViewAll))
	assert.False(t, custom.Can(PermSubmit))
}

func TestMissingHeaderFields(t *testing.T) {
	assert.Equal(t,
		[]string{"building", "floor", "location", "kitId", "inspectedBy", "date"},
		MissingHeaderFields(KindFirstAid, Header{}))

	assert.Equal(t,
		[]string{"serialNumber"},
		MissingHeaderFields(KindFireExtinguisher, Header{
			InspectedBy: "J.Doe", Date: "2024-01-01", Building: "HQ", Floor: "1",
			Location: "Lobby", SerialNumber: " ", ExtinguisherType: "CO2",
		}))

	assert.Nil(t, MissingHeaderFields(KindHSE, Header{
		InspectedBy: "J.Doe", Date: "2024-01-01", Contractor: "Acme", Location: "Site A",
	}))
}

func TestHeader_Fields(t *testing.T) {
	h := Header{InspectedBy: "J.Doe", Date: "2024-01-01", Building: "HQ", Floor: "2", Location: "Lobby", KitID: "K-7"}

	fields := h.Fields(KindFirstAid)
	require.Len(t, fields, 7)
	assert.Equal(t, HeaderField{Name: "inspectedBy", Label: "Inspected By", Value: "J.Doe"}, fields[0])
	assert.Equal(t, HeaderField{Name: "kitId", Label: "Kit ID", Value: "K-7"}, fields[5])
	assert.Equal(t, "", fields[6].Value)

	assert.Len(t, h.Fields(KindHSE), 4)
}
