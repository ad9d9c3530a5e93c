package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/dukerupert/safecheck"
	"github.com/go-playground/validator/v10"
)

// Validator provides input validation using go-playground/validator.
//
// It implements echo.Validator, so handlers call c.Validate(&req) after
// binding. Failures are returned as an EINVALID *safecheck.Error whose
// Fields are keyed by the JSON (or query) name the client sent.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
//
// Usage in the server:
//
//	e.Validator = validation.NewValidator()
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	// Custom validators
	_ = v.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || safecheck.Kind(s).IsValid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || safecheck.InspectionStatus(s).IsValid()
	})

	return &Validator{validate: v}
}

// fieldName reports a field by the name clients use for it.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "param"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Validate validates a struct using its validation tags.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return safecheck.ErrorWithFields(FormatValidationErrors(validationErrors))
		}
		return safecheck.Invalid("Invalid request: %v", err)
	}
	return nil
}

// Request structs with validation tags

// ListInspectionsRequest holds the query parameters of the list endpoint.
type ListInspectionsRequest struct {
	Kind   string `query:"kind" validate:"kind"`
	Status string `query:"status" validate:"status"`
	Offset int    `query:"offset" validate:"min=0"`
	Limit  int    `query:"limit" validate:"min=0,max=500"`
}

// Filter converts the request into a summary filter.
func (r ListInspectionsRequest) Filter() safecheck.SummaryFilter {
	f := safecheck.SummaryFilter{Offset: r.Offset, Limit: r.Limit}
	if r.Kind != "" {
		k := safecheck.Kind(r.Kind)
		f.Kind = &k
	}
	if r.Status != "" {
		s := safecheck.InspectionStatus(r.Status)
		f.Status = &s
	}
	return f
}

// UpdateItemRequest represents a change to one checklist item. Pointer
// fields that are nil are left unchanged; an empty rating clears it.
type UpdateItemRequest struct {
	Rating          *string `json:"rating" validate:"omitempty,max=10"`
	Comments        *string `json:"comments" validate:"omitempty,max=2000"`
	CurrentQuantity *int    `json:"currentQuantity" validate:"omitempty,min=0"`
	ExpiryDate      *string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
}

// Update converts the request into a workflow item update.
func (r UpdateItemRequest) Update() safecheck.ItemUpdate {
	upd := safecheck.ItemUpdate{
		CurrentQuantity: r.CurrentQuantity,
		ExpiryDate:      r.ExpiryDate,
	}
	if r.Rating != nil {
		rating := safecheck.Rating(strings.TrimSpace(*r.Rating))
		upd.Rating = &rating
	}
	if r.Comments != nil {
		c := SanitizeInput(*r.Comments)
		upd.Comments = &c
	}
	return upd
}

// ApproveRequest represents an approval decision.
type ApproveRequest struct {
	Comments string `json:"comments" validate:"max=2000"`
}

// RejectRequest represents a rejection decision. Comments are required.
type RejectRequest struct {
	Comments string `json:"comments" validate:"required,max=2000"`
}

// AnalyticsRequest holds the query parameters of the analytics endpoint.
type AnalyticsRequest struct {
	Window string `query:"window" validate:"omitempty,oneof=7 30 90"`
	Kind   string `query:"kind" validate:"kind"`
}

// AuditRequest holds the query parameters of the audit endpoints. Dates
// are calendar days; To includes the whole day.
type AuditRequest struct {
	User   string `query:"user" validate:"max=200"`
	Action string `query:"action" validate:"max=100"`
	From   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Kind   string `query:"kind" validate:"kind"`
}

// Filter converts the request into an audit filter. It assumes the
// request has already been validated.
func (r AuditRequest) Filter() safecheck.AuditFilter {
	f := safecheck.AuditFilter{User: r.User, Action: r.Action}
	if t, err := time.Parse(safecheck.DateLayout, r.From); err == nil {
		f.From = &t
	}
	if t, err := time.Parse(safecheck.DateLayout, r.To); err == nil {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	if r.Kind != "" {
		k := safecheck.Kind(r.Kind)
		f.Kind = &k
	}
	return f
}

// ExportRequest selects an export format.
type ExportRequest struct {
	Format string `query:"format" validate:"omitempty,oneof=csv html xlsx json"`
}

// FormatValidationErrors converts validator errors to user-friendly messages.
//
// Example output:
//
//	{
//	  "comments": "is required",
//	  "limit": "must be no more than 500"
//	}
func FormatValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["_error"] = err.Error()
		return out
	}

	for _, fieldErr := range validationErrors {
		name := fieldErr.Field()
		isString := fieldErr.Kind() == reflect.String

		switch fieldErr.Tag() {
		case "required":
			out[name] = "is required"
		case "min":
			if isString {
				out[name] = fmt.Sprintf("must be at least %s characters", fieldErr.Param())
			} else {
				out[name] = fmt.Sprintf("must be at least %s", fieldErr.Param())
			}
		case "max":
			if isString {
				out[name] = fmt.Sprintf("must be no more than %s characters", fieldErr.Param())
			} else {
				out[name] = fmt.Sprintf("must be no more than %s", fieldErr.Param())
			}
		case "oneof":
			out[name] = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fieldErr.Param(), " ", ", "))
		case "datetime":
			out[name] = "must be a date in YYYY-MM-DD format"
		case "kind":
			out[name] = "must be one of: hse, fire_extinguisher, first_aid"
		case "status":
			out[name] = "must be a known inspection status"
		default:
			out[name] = fmt.Sprintf("failed validation: %s", fieldErr.Tag())
		}
	}

	return out
}

// SanitizeInput trims whitespace and removes control characters other
// than tabs and line breaks from free text.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	var builder strings.Builder
	for _, r := range input {
		if r == '\t' || r == '\n' || r == '\r' || !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}
