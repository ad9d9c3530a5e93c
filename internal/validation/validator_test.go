package validation

import (
	"testing"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_RejectRequest(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&RejectRequest{})
	require.Error(t, err)
	assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))
	assert.Equal(t, map[string]string{"comments": "is required"}, safecheck.ErrorFields(err))

	assert.NoError(t, v.Validate(&RejectRequest{Comments: "Missing PPE photos"}))
}

func TestValidator_ListInspectionsRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		req    ListInspectionsRequest
		fields []string
	}{
		{name: "empty", req: ListInspectionsRequest{}},
		{name: "valid", req: ListInspectionsRequest{Kind: "first_aid", Status: "submitted", Limit: 20}},
		{name: "unknown kind", req: ListInspectionsRequest{Kind: "boiler"}, fields: []string{"kind"}},
		{name: "unknown status", req: ListInspectionsRequest{Status: "archived"}, fields: []string{"status"}},
		{name: "bad paging", req: ListInspectionsRequest{Offset: -1, Limit: 1000}, fields: []string{"offset", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := safecheck.ErrorFields(err)
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestListInspectionsRequest_Filter(t *testing.T) {
	f := ListInspectionsRequest{Kind: "hse", Offset: 10, Limit: 5}.Filter()
	require.NotNil(t, f.Kind)
	assert.Equal(t, safecheck.KindHSE, *f.Kind)
	assert.Nil(t, f.Status)
	assert.Equal(t, 10, f.Offset)
	assert.Equal(t, 5, f.Limit)
}

func TestValidator_UpdateItemRequest(t *testing.T) {
	v := NewValidator()
	neg := -3
	bad := "31/12/2024"

	err := v.Validate(&UpdateItemRequest{CurrentQuantity: &neg, ExpiryDate: &bad})
	require.Error(t, err)
	fields := safecheck.ErrorFields(err)
	assert.Equal(t, "must be at least 0", fields["currentQuantity"])
	assert.Equal(t, "must be a date in YYYY-MM-DD format", fields["expiryDate"])

	rating := " PASS "
	comments := "  hose cracked\x00 "
	upd := UpdateItemRequest{Rating: &rating, Comments: &comments}.Update()
	require.NotNil(t, upd.Rating)
	assert.Equal(t, safecheck.RatingPass, *upd.Rating)
	assert.Equal(t, "hose cracked", *upd.Comments)
	assert.Nil(t, upd.CurrentQuantity)
}

func TestValidator_AnalyticsRequest(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&AnalyticsRequest{Window: "90"}))

	err := v.Validate(&AnalyticsRequest{Window: "14"})
	require.Error(t, err)
	assert.Equal(t, "must be one of: 7, 30, 90", safecheck.ErrorFields(err)["window"])
}

func TestAuditRequest_Filter(t *testing.T) {
	f := AuditRequest{User: "smith", From: "2024-01-01", To: "2024-01-31", Kind: "fire_extinguisher"}.Filter()

	assert.Equal(t, "smith", f.User)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.True(t, f.To.After(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, f.To.Before(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, f.Kind)
	assert.Equal(t, safecheck.KindFireExtinguisher, *f.Kind)

	empty := AuditRequest{}.Filter()
	assert.Nil(t, empty.From)
	assert.Nil(t, empty.To)
	assert.Nil(t, empty.Kind)
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  padded  ", "padded"},
		{"line one\nline two", "line one\nline two"},
		{"bell\x07 removed", "bell removed"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeInput(tt.input))
	}
}
