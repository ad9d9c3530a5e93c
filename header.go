package safecheck

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Header holds the header fields of every kind. Which fields apply, and
// which are required, depends on the kind (see HeaderFields and
// RequiredHeaderFields).
type Header struct {
	InspectedBy string `json:"inspectedBy" validate:"required"`
	Date        string `json:"date" validate:"required"`

	// HSE
	Contractor string `json:"contractor,omitempty" validate:"required"`

	// Shared by HSE and equipment kinds
	Location string `json:"location,omitempty" validate:"required"`

	// Equipment kinds
	Building string `json:"building,omitempty" validate:"required"`
	Floor    string `json:"floor,omitempty" validate:"required"`

	// Fire extinguisher
	SerialNumber     string `json:"serialNumber,omitempty" validate:"required"`
	ExtinguisherType string `json:"extinguisherType,omitempty" validate:"required"`
	Capacity         string `json:"capacity,omitempty"`

	// First aid
	KitID   string `json:"kitId,omitempty" validate:"required"`
	KitType string `json:"kitType,omitempty"`
}

// HeaderUpdate defines header fields that can be updated on a draft.
// Pointer fields: nil = don't update, non-nil = update to this value.
type HeaderUpdate struct {
	InspectedBy      *string `json:"inspectedBy,omitempty"`
	Date             *string `json:"date,omitempty"`
	Contractor       *string `json:"contractor,omitempty"`
	Location         *string `json:"location,omitempty"`
	Building         *string `json:"building,omitempty"`
	Floor            *string `json:"floor,omitempty"`
	SerialNumber     *string `json:"serialNumber,omitempty"`
	ExtinguisherType *string `json:"extinguisherType,omitempty"`
	Capacity         *string `json:"capacity,omitempty"`
	KitID            *string `json:"kitId,omitempty"`
	KitType          *string `json:"kitType,omitempty"`
}

var headerFields = map[Kind][]string{
	KindHSE:              {"inspectedBy", "date", "contractor", "location"},
	KindFireExtinguisher: {"inspectedBy", "date", "building", "floor", "location", "serialNumber", "extinguisherType", "capacity"},
	KindFirstAid:         {"inspectedBy", "date", "building", "floor", "location", "kitId", "kitType"},
}

var requiredHeaderFields = map[Kind][]string{
	KindHSE:              {"contractor", "location", "inspectedBy", "date"},
	KindFireExtinguisher: {"building", "floor", "location", "serialNumber", "extinguisherType", "inspectedBy", "date"},
	KindFirstAid:         {"building", "floor", "location", "kitId", "inspectedBy", "date"},
}

// HeaderFields returns the JSON names of the header fields a kind uses.
func HeaderFields(kind Kind) []string {
	return append([]string(nil), headerFields[kind]...)
}

// RequiredHeaderFields returns the JSON names of the fields that must be
// non-empty before a record of the kind can be submitted.
func RequiredHeaderFields(kind Kind) []string {
	return append([]string(nil), requiredHeaderFields[kind]...)
}

var headerValidate = newHeaderValidator()

func newHeaderValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// goFieldNames maps JSON header names to struct field names for StructPartial.
var goFieldNames = func() map[string]string {
	m := make(map[string]string)
	t := reflect.TypeOf(Header{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		m[name] = f.Name
	}
	return m
}()

// MissingHeaderFields returns the required fields of the kind that are
// blank, in the kind's declared order.
func MissingHeaderFields(kind Kind, h Header) []string {
	required := requiredHeaderFields[kind]
	names := make([]string, 0, len(required))
	for _, name := range required {
		names = append(names, goFieldNames[name])
	}

	trimmed := h.trimmed()
	err := headerValidate.StructPartial(trimmed, names...)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append([]string(nil), required...)
	}
	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Field()] = true
	}
	var missing []string
	for _, name := range required {
		if failed[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// trimmed returns a copy with surrounding whitespace removed so blank
// values count as missing.
func (h Header) trimmed() Header {
	h.InspectedBy = strings.TrimSpace(h.InspectedBy)
	h.Date = strings.TrimSpace(h.Date)
	h.Contractor = strings.TrimSpace(h.Contractor)
	h.Location = strings.TrimSpace(h.Location)
	h.Building = strings.TrimSpace(h.Building)
	h.Floor = strings.TrimSpace(h.Floor)
	h.SerialNumber = strings.TrimSpace(h.SerialNumber)
	h.ExtinguisherType = strings.TrimSpace(h.ExtinguisherType)
	h.Capacity = strings.TrimSpace(h.Capacity)
	h.KitID = strings.TrimSpace(h.KitID)
	h.KitType = strings.TrimSpace(h.KitType)
	return h
}

// apply writes the update onto h after checking that every field it sets
// belongs to the kind and that dates are well formed.
func (upd HeaderUpdate) apply(kind Kind, h *Header) error {
	allowed := make(map[string]bool)
	for _, name := range headerFields[kind] {
		allowed[name] = true
	}

	sets := []struct {
		name  string
		value *string
		dst   *string
	}{
		{"inspectedBy", upd.InspectedBy, &h.InspectedBy},
		{"date", upd.Date, &h.Date},
		{"contractor", upd.Contractor, &h.Contractor},
		{"location", upd.Location, &h.Location},
		{"building", upd.Building, &h.Building},
		{"floor", upd.Floor, &h.Floor},
		{"serialNumber", upd.SerialNumber, &h.SerialNumber},
		{"extinguisherType", upd.ExtinguisherType, &h.ExtinguisherType},
		{"capacity", upd.Capacity, &h.Capacity},
		{"kitId", upd.KitID, &h.KitID},
		{"kitType", upd.KitType, &h.KitType},
	}

	fields := make(map[string]string)
	for _, s := range sets {
		if s.value == nil {
			continue
		}
		if !allowed[s.name] {
			fields[s.name] = "is not a " + kind.Label() + " header field"
			continue
		}
		if s.name == "date" && *s.value != "" {
			if _, err := time.Parse(DateLayout, *s.value); err != nil {
				fields[s.name] = "must be a date in YYYY-MM-DD format"
				continue
			}
		}
	}
	if len(fields) > 0 {
		return ErrorWithFields(fields)
	}

	for _, s := range sets {
		if s.value != nil {
			*s.dst = *s.value
		}
	}
	return nil
}

// changed lists the JSON names of fields the update sets.
func (upd HeaderUpdate) changed() []string {
	var names []string
	add := func(name string, v *string) {
		if v != nil {
			names = append(names, name)
		}
	}
	add("inspectedBy", upd.InspectedBy)
	add("date", upd.Date)
	add("contractor", upd.Contractor)
	add("location", upd.Location)
	add("building", upd.Building)
	add("floor", upd.Floor)
	add("serialNumber", upd.SerialNumber)
	add("extinguisherType", upd.ExtinguisherType)
	add("capacity", upd.Capacity)
	add("kitId", upd.KitID)
	add("kitType", upd.KitType)
	return names
}

var headerLabels = map[string]string{
	"inspectedBy":      "Inspected By",
	"date":             "Date",
	"contractor":       "Contractor",
	"location":         "Location",
	"building":         "Building",
	"floor":            "Floor",
	"serialNumber":     "Serial Number",
	"extinguisherType": "Extinguisher Type",
	"capacity":         "Capacity",
	"kitId":            "Kit ID",
	"kitType":          "Kit Type",
}

// HeaderField is one labelled header value.
type HeaderField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fields returns the header fields the kind uses, labelled, in display order.
func (h Header) Fields(kind Kind) []HeaderField {
	v := reflect.ValueOf(h)
	out := make([]HeaderField, 0, len(headerFields[kind]))
	for _, name := range headerFields[kind] {
		out = append(out, HeaderField{
			Name:  name,
			Label: headerLabels[name],
			Value: v.FieldByName(goFieldNames[name]).String(),
		})
	}
	return out
}
