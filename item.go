package safecheck

import "time"

// DateLayout is the layout of date-only fields (inspection date, expiry date).
const DateLayout = "2006-01-02"

// LowStockRatio is the fraction of the required quantity below which a
// first aid stock item is considered low.
const LowStockRatio = 0.3

// ChecklistItem is one line of an inspection checklist.
type ChecklistItem struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Item     string `json:"item"`
	Rating   Rating `json:"rating"`
	Comments string `json:"comments"`

	// RequiresAction is derived from the rating (and for first aid, the
	// stock level and expiry). It is never set directly.
	RequiresAction bool `json:"requiresAction"`

	// First aid stock fields. RequiredQuantity is zero for items that are
	// not counted.
	RequiredQuantity int    `json:"requiredQuantity,omitempty"`
	CurrentQuantity  int    `json:"currentQuantity,omitempty"`
	ExpiryDate       string `json:"expiryDate,omitempty"`
}

// IsStockItem reports whether the item is quantity-driven.
func (i *ChecklistItem) IsStockItem() bool {
	return i.RequiredQuantity > 0
}

// IsRated reports whether the item carries a rating valid for the kind.
func (i *ChecklistItem) IsRated(kind Kind) bool {
	return Classify(kind, i.Rating) != ClassUnrated
}

// IsExpired reports whether the item's expiry date lies before the day of now.
// Items without an expiry date, or with an unparseable one, are not expired.
func (i *ChecklistItem) IsExpired(now time.Time) bool {
	if i.ExpiryDate == "" {
		return false
	}
	expiry, err := time.ParseInLocation(DateLayout, i.ExpiryDate, now.Location())
	if err != nil {
		return false
	}
	return expiry.Before(startOfDay(now))
}

// RequiresAction computes whether the item needs follow-up.
func RequiresAction(kind Kind, item ChecklistItem, now time.Time) bool {
	class := Classify(kind, item.Rating)
	if kind != KindFirstAid {
		return class == ClassCritical
	}
	if class == ClassPoor || class == ClassCritical {
		return true
	}
	if item.IsStockItem() && item.CurrentQuantity == 0 {
		return true
	}
	return item.IsExpired(now)
}

// InferStockStatus derives a first aid status from the stock level. Empty
// stock is MISSING, stock under LowStockRatio of the requirement is LOW,
// and an item previously MISSING or LOW that is restocked returns to GOOD.
// Any other status is kept. Applying it twice yields the same status.
func InferStockStatus(item ChecklistItem) Rating {
	if !item.IsStockItem() {
		return item.Rating
	}
	switch {
	case item.CurrentQuantity == 0:
		return StatusMissing
	case float64(item.CurrentQuantity) < float64(item.RequiredQuantity)*LowStockRatio:
		return StatusLow
	case item.Rating == StatusMissing || item.Rating == StatusLow:
		return StatusGood
	}
	return item.Rating
}

// refresh recomputes every derived field of the item.
func (i *ChecklistItem) refresh(kind Kind, now time.Time) {
	i.RequiresAction = RequiresAction(kind, *i, now)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
