package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func testReport(t *testing.T) *safecheck.Report {
	t.Helper()
	items := []safecheck.ChecklistItem{
		{ID: "fe-01", Category: "Location & Access", Item: "Mounted at correct height", Rating: safecheck.RatingPass},
		{ID: "fe-02", Category: "Physical Condition", Item: "Hose free of cracks", Rating: safecheck.RatingFail, Comments: "<script>alert(1)</script>", RequiresAction: true},
		{ID: "fe-03", Category: "Physical Condition", Item: "Pin and seal intact"},
	}
	saved := testNow.Add(-time.Hour)
	rec := &safecheck.Inspection{
		ID:   uuid.MustParse("7d7c2a0e-8f7e-4a59-9d36-3b1b7a0b6a11"),
		Kind: safecheck.KindFireExtinguisher,
		Header: safecheck.Header{
			InspectedBy:      "J.Doe",
			Date:             "2024-06-03",
			Building:         "HQ",
			Floor:            "2",
			Location:         "Stairwell B",
			SerialNumber:     "FX-1001",
			ExtinguisherType: "CO2",
		},
		Status: safecheck.InspectionStatusSupervisorApproved,
		Items:  items,
		SupervisorApproval: &safecheck.Approval{
			ApprovedBy: "S.Smith", ApprovedAt: testNow.Add(-30 * time.Minute), Comments: "Replace hose",
		},
		AuditLog: []safecheck.AuditEntry{
			{Timestamp: testNow.Add(-2 * time.Hour), User: "J.Doe", Action: safecheck.ActionCreated, Details: "Created Fire Extinguisher inspection"},
			{Timestamp: saved, User: "J.Doe", Action: safecheck.ActionSubmitted, Details: "Submitted for supervisor review"},
		},
		CreatedAt: testNow.Add(-2 * time.Hour),
		SavedAt:   &saved,
	}
	return safecheck.BuildReport(rec, testNow)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Equal(t, safecheck.EINVALID, safecheck.ErrorCode(err))
}

func TestFilename(t *testing.T) {
	r := testReport(t)
	assert.Equal(t, "fire_extinguisher_Stairwell_B_20240603_143000.csv", Filename(r, FormatCSV))
	assert.Equal(t, "inspections_20240603_143000.xlsx", ListFilename("inspections", testNow, FormatXLSX))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testReport(t)))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	lookup := func(label string) string {
		for _, row := range rows {
			if len(row) >= 2 && row[0] == label {
				return row[1]
			}
		}
		return ""
	}
	assert.Equal(t, "Fire Extinguisher Inspection Report", rows[0][0])
	assert.Equal(t, "FX-1001", lookup("Serial Number"))
	assert.Equal(t, string(safecheck.ConditionNeedsAttention), lookup("Condition"))
	assert.Equal(t, "50", lookup("Compliance Rate (%)"))
	assert.Equal(t, "67", lookup("Completion Rate (%)"))
	assert.Contains(t, lookup("Supervisor Approval"), "S.Smith")

	var itemRow []string
	for _, row := range rows {
		if row[0] == "fe-02" {
			itemRow = row
		}
	}
	require.NotNil(t, itemRow)
	assert.Equal(t, "Fail", itemRow[3])
	assert.Equal(t, "true", itemRow[6])
	assert.Equal(t, "<script>alert(1)</script>", itemRow[7])
}

func TestWriteSummariesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummariesCSV(&buf, []*safecheck.Report{testReport(t)}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, summaryColumns, rows[0])
	assert.Equal(t, "Fire Extinguisher", rows[1][1])
	assert.Equal(t, "Stairwell B", rows[1][2])
	assert.Equal(t, "1", rows[1][8])
}

func TestWriteAuditCSV(t *testing.T) {
	r := testReport(t)
	trail := safecheck.FlattenAuditLogs([]*safecheck.Inspection{r.Inspection})

	var buf bytes.Buffer
	require.NoError(t, WriteAuditCSV(&buf, trail))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, safecheck.ActionSubmitted, rows[1][2])
	assert.Equal(t, r.Inspection.ID.String(), rows[1][5])
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, testReport(t)))
	out := buf.String()

	assert.Contains(t, out, "<title>Fire Extinguisher Inspection Report</title>")
	assert.Contains(t, out, "NEEDS ATTENTION")
	assert.Contains(t, out, "Stairwell B")
	assert.Contains(t, out, `class="critical"`)
	assert.Contains(t, out, "Not Rated")
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Report", "Audit Log"}, f.GetSheetList())

	title, err := f.GetCellValue("Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Fire Extinguisher Inspection Report", title)

	rows, err := f.GetRows("Audit Log")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Timestamp", "User", "Action", "Details"}, rows[0])
}

func TestWriteSummariesXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummariesXLSX(&buf, []*safecheck.Report{testReport(t)}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Inspections")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Stairwell B", rows[1][2])
	assert.Equal(t, "50", rows[1][7])
}

func TestArchiver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	r := testReport(t)

	var gotKey, gotType, gotBody string
	storage := &mock.FileStorage{
		UploadFn: func(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
			body, err := io.ReadAll(reader)
			require.NoError(t, err)
			gotKey, gotType, gotBody = key, contentType, string(body)
			return "https://files.example.com/" + key, nil
		},
	}

	url, err := NewArchiver(storage, logger).Archive(context.Background(), r, FormatCSV)
	require.NoError(t, err)

	wantKey := "reports/fire_extinguisher/7d7c2a0e-8f7e-4a59-9d36-3b1b7a0b6a11/20240603T143000Z.csv"
	assert.Equal(t, wantKey, gotKey)
	assert.Equal(t, "https://files.example.com/"+wantKey, url)
	assert.Equal(t, "text/csv", gotType)
	assert.True(t, strings.HasPrefix(gotBody, "Fire Extinguisher Inspection Report"))

	storage.UploadFn = func(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
		return "", errors.New("bucket unavailable")
	}
	_, err = NewArchiver(storage, logger).Archive(context.Background(), r, FormatHTML)
	assert.Equal(t, safecheck.ESTORAGE, safecheck.ErrorCode(err))
}
