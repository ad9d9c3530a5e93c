package safecheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferStockStatus(t *testing.T) {
	tests := []struct {
		name    string
		current int
		prev    Rating
		want    Rating
	}{
		{"empty", 0, StatusGood, StatusMissing},
		{"low", 5, Unrated, StatusLow},
		{"at threshold", 6, Unrated, Unrated},
		{"restocked from low", 15, StatusLow, StatusGood},
		{"restocked from missing", 20, StatusMissing, StatusGood},
		{"damaged kept", 15, StatusDamaged, StatusDamaged},
		{"expired kept", 15, StatusExpired, StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ChecklistItem{RequiredQuantity: 20, CurrentQuantity: tt.current, Rating: tt.prev}
			got := InferStockStatus(item)
			assert.Equal(t, tt.want, got)

			item.Rating = got
			assert.Equal(t, got, InferStockStatus(item), "not idempotent")
		})
	}
}

func TestInferStockStatus_NonStockItem(t *testing.T) {
	item := ChecklistItem{Rating: StatusDamaged}
	assert.Equal(t, StatusDamaged, InferStockStatus(item))
}

func TestRequiresAction(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.True(t, RequiresAction(KindHSE, ChecklistItem{Rating: RatingSIN}, now))
	assert.False(t, RequiresAction(KindHSE, ChecklistItem{Rating: RatingPoor}, now))
	assert.True(t, RequiresAction(KindFireExtinguisher, ChecklistItem{Rating: RatingFail}, now))
	assert.False(t, RequiresAction(KindFireExtinguisher, ChecklistItem{Rating: RatingNotApplicable}, now))

	assert.True(t, RequiresAction(KindFirstAid, ChecklistItem{Rating: StatusLow}, now))
	assert.True(t, RequiresAction(KindFirstAid, ChecklistItem{Rating: StatusDamaged}, now))
	assert.True(t, RequiresAction(KindFirstAid, ChecklistItem{RequiredQuantity: 2}, now))
	assert.False(t, RequiresAction(KindFirstAid, ChecklistItem{RequiredQuantity: 2, CurrentQuantity: 2, Rating: StatusGood}, now))
	assert.True(t, RequiresAction(KindFirstAid, ChecklistItem{Rating: StatusGood, ExpiryDate: "2024-06-14"}, now))
	assert.False(t, RequiresAction(KindFirstAid, ChecklistItem{Rating: StatusGood, ExpiryDate: "2024-06-15"}, now))
}

func TestNewTemplate(t *testing.T) {
	sizes := map[Kind]int{KindHSE: 25, KindFireExtinguisher: 22, KindFirstAid: 16}
	for kind, n := range sizes {
		items, err := NewTemplate(kind)
		require.NoError(t, err)
		assert.Len(t, items, n)

		ids := make(map[string]bool)
		for _, item := range items {
			assert.False(t, ids[item.ID], "duplicate id %s", item.ID)
			ids[item.ID] = true
			assert.Equal(t, Unrated, item.Rating)
			assert.NotEmpty(t, item.Category)
			assert.Equal(t, item.RequiredQuantity, item.CurrentQuantity)
		}
	}

	items, err := NewTemplate(KindHSE)
	require.NoError(t, err)
	assert.Equal(t, "hse-01", items[0].ID)
	assert.Equal(t, "hse-25", items[24].ID)

	_, err = NewTemplate(Kind("boiler"))
	assert.Equal(t, EINVALID, ErrorCode(err))
}
