package safecheck

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which checklist, rating vocabulary and header schema a
// record uses.
type Kind string

const (
	KindHSE              Kind = "hse"
	KindFireExtinguisher Kind = "fire_extinguisher"
	KindFirstAid         Kind = "first_aid"
)

// Kinds lists every inspection kind in display order.
var Kinds = []Kind{KindHSE, KindFireExtinguisher, KindFirstAid}

// IsValid returns true if the kind is a recognized value.
func (k Kind) IsValid() bool {
	switch k {
	case KindHSE, KindFireExtinguisher, KindFirstAid:
		return true
	}
	return false
}

// ParseKind parses a kind, returning EINVALID for unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", Invalid("Unknown inspection kind %q", s)
	}
	return k, nil
}

// Label returns the human-readable kind name.
func (k Kind) Label() string {
	switch k {
	case KindHSE:
		return "HSE"
	case KindFireExtinguisher:
		return "Fire Extinguisher"
	case KindFirstAid:
		return "First Aid"
	}
	return string(k)
}

// CollectionKey is the storage key holding the kind's submitted records.
func (k Kind) CollectionKey() string {
	switch k {
	case KindHSE:
		return "inspections"
	case KindFireExtinguisher:
		return "fire_extinguisher_inspections"
	case KindFirstAid:
		return "first_aid_inspections"
	}
	return ""
}

// DraftKey is the storage key holding the kind's unsubmitted drafts.
func (k Kind) DraftKey() string {
	switch k {
	case KindHSE:
		return "inspection_drafts"
	case KindFireExtinguisher:
		return "fire_extinguisher_inspection_drafts"
	case KindFirstAid:
		return "first_aid_inspection_drafts"
	}
	return ""
}

// Rating is a rating value from one kind's vocabulary. The empty rating
// means unrated and serializes as JSON null.
type Rating string

// HSE ratings.
const (
	RatingGood       Rating = "G"
	RatingAcceptable Rating = "A"
	RatingPoor       Rating = "P"
	RatingIrrelevant Rating = "I"
	RatingSIN        Rating = "SIN"
	RatingSPS        Rating = "SPS"
	RatingSWO        Rating = "SWO"
)

// Fire extinguisher ratings.
const (
	RatingPass          Rating = "PASS"
	RatingFail          Rating = "FAIL"
	RatingNotApplicable Rating = "N/A"
)

// First aid statuses.
const (
	StatusGood    Rating = "GOOD"
	StatusLow     Rating = "LOW"
	StatusExpired Rating = "EXPIRED"
	StatusMissing Rating = "MISSING"
	StatusDamaged Rating = "DAMAGED"
)

// Unrated is the zero rating.
const Unrated Rating = ""

// MarshalJSON encodes the unrated value as null.
func (r Rating) MarshalJSON() ([]byte, error) {
	if r == Unrated {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON decodes null as unrated.
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unrated
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	*r = Rating(s)
	return nil
}

// Classification is the kind-agnostic meaning of a rating. Every statistic
// is computed from classifications, never from raw ratings.
type Classification string

const (
	ClassCompliant     Classification = "compliant"
	ClassPoor          Classification = "poor"
	ClassCritical      Classification = "critical"
	ClassNotApplicable Classification = "not_applicable"
	ClassUnrated       Classification = "unrated"
)

var vocabularies = map[Kind]map[Rating]Classification{
	KindHSE: {
		RatingGood:       ClassCompliant,
		RatingAcceptable: ClassCompliant,
		RatingPoor:       ClassPoor,
		RatingIrrelevant: ClassNotApplicable,
		RatingSIN:        ClassCritical,
		RatingSPS:        ClassCritical,
		RatingSWO:        ClassCritical,
	},
	KindFireExtinguisher: {
		RatingPass:          ClassCompliant,
		RatingFail:          ClassCritical,
		RatingNotApplicable: ClassNotApplicable,
	},
	KindFirstAid: {
		StatusGood:    ClassCompliant,
		StatusLow:     ClassPoor,
		StatusExpired: ClassCritical,
		StatusMissing: ClassCritical,
		StatusDamaged: ClassCritical,
	},
}

var vocabularyOrder = map[Kind][]Rating{
	KindHSE:              {RatingGood, RatingAcceptable, RatingPoor, RatingIrrelevant, RatingSIN, RatingSPS, RatingSWO},
	KindFireExtinguisher: {RatingPass, RatingFail, RatingNotApplicable},
	KindFirstAid:         {StatusGood, StatusLow, StatusExpired, StatusMissing, StatusDamaged},
}

// Vocabulary returns the ratings valid for a kind, in display order.
func Vocabulary(kind Kind) []Rating {
	return append([]Rating(nil), vocabularyOrder[kind]...)
}

// Classify maps a rating to its classification. Unset ratings and ratings
// outside the kind's vocabulary are unrated, never compliant.
func Classify(kind Kind, r Rating) Classification {
	if c, ok := vocabularies[kind][r]; ok {
		return c
	}
	return ClassUnrated
}

// IsValidRating reports whether r belongs to the kind's vocabulary.
func IsValidRating(kind Kind, r Rating) bool {
	_, ok := vocabularies[kind][r]
	return ok
}

// RatingLabel returns the long name of a rating.
func RatingLabel(r Rating) string {
	switch r {
	case RatingGood:
		return "Good"
	case RatingAcceptable:
		return "Acceptable"
	case RatingPoor:
		return "Poor"
	case RatingIrrelevant:
		return "Irrelevant"
	case RatingSIN:
		return "Safety Improvement Notice"
	case RatingSPS:
		return "Safety Penalty Slip"
	case RatingSWO:
		return "Stop Work Order"
	case RatingPass:
		return "Pass"
	case RatingFail:
		return "Fail"
	case RatingNotApplicable:
		return "Not Applicable"
	case StatusGood:
		return "Good"
	case StatusLow:
		return "Low Stock"
	case StatusExpired:
		return "Expired"
	case StatusMissing:
		return "Missing"
	case StatusDamaged:
		return "Damaged"
	case Unrated:
		return "Not Rated"
	}
	return string(r)
}
