package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "visita/pkg/domain-errors"
)

// Tier is the review sensitivity of a profile field. DirectPublish fields are
// operational data applied to the live record immediately; RequiresReview
// fields affect the church's identity or heritage claims and wait for
// chancery approval once a profile is approved.
type Tier string

const (
	DirectPublish  Tier = "direct-publish"
	RequiresReview Tier = "requires-review"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindText
	kindYear
	kindCoordinates
	kindStringList
	kindScheduleList
	kindEmail
)

type fieldSpec struct {
	Tier  Tier
	Label string
	Kind  fieldKind
}

// fieldSchema is the closed field schema for church profiles, defined once so
// classification, labels, and validation cannot drift apart. Adding a field
// here is the only way to make it writable.
var fieldSchema = map[string]fieldSpec{
	// Identity and heritage fields: chancery review required after approval.
	"name":                   {RequiresReview, "Church Name", kindString},
	"address":                {RequiresReview, "Address", kindText},
	"coordinates":            {RequiresReview, "Map Coordinates", kindCoordinates},
	"foundingYear":           {RequiresReview, "Founding Year", kindYear},
	"historicalBackground":   {RequiresReview, "Historical Background", kindText},
	"heritageClassification": {RequiresReview, "Heritage Classification", kindString},
	"patronSaint":            {RequiresReview, "Patron Saint", kindString},
	"architecturalStyle":     {RequiresReview, "Architectural Style", kindString},

	// Operational fields: publish immediately.
	"contactPhone":       {DirectPublish, "Contact Phone", kindString},
	"contactEmail":       {DirectPublish, "Contact Email", kindEmail},
	"website":            {DirectPublish, "Website", kindString},
	"facebookPage":       {DirectPublish, "Facebook Page", kindString},
	"massSchedules":      {DirectPublish, "Mass Schedules", kindScheduleList},
	"officeHours":        {DirectPublish, "Office Hours", kindString},
	"accessibilityNotes": {DirectPublish, "Accessibility Notes", kindText},
	"photoGallery":       {DirectPublish, "Photo Gallery", kindStringList},
	"coverPhoto":         {DirectPublish, "Cover Photo", kindString},
}

// Classify maps a field name to its review tier. Unknown fields fail closed as
// RequiresReview: an unrecognized field must never auto-publish.
func Classify(field string) Tier {
	spec, ok := fieldSchema[field]
	if !ok {
		return RequiresReview
	}
	return spec.Tier
}

// IsKnownField reports whether the field exists in the profile schema.
func IsKnownField(field string) bool {
	_, ok := fieldSchema[field]
	return ok
}

// FieldLabel resolves an internal field key to its display label for
// notifications and review summaries. Unknown keys pass through unchanged.
func FieldLabel(field string) string {
	if spec, ok := fieldSchema[field]; ok {
		return spec.Label
	}
	return field
}

// FieldLabels maps a list of field keys to display labels, preserving order.
func FieldLabels(fields []string) []string {
	labels := make([]string, len(fields))
	for i, field := range fields {
		labels[i] = FieldLabel(field)
	}
	return labels
}

// Partition splits changed field names into the direct-publish and
// requires-review sets. Every input name lands in exactly one output.
func Partition(changed []string) (toPublish, toStage []string) {
	for _, field := range changed {
		if Classify(field) == DirectPublish {
			toPublish = append(toPublish, field)
		} else {
			toStage = append(toStage, field)
		}
	}
	return toPublish, toStage
}

// ValidateFields checks a normalized FieldMap against the schema: unknown
// fields are rejected and known fields must satisfy their kind's shape
// constraints. All problems are reported together so the caller can surface
// them field by field.
func ValidateFields(m FieldMap) error {
	var problems []string
	for name, value := range m {
		spec, ok := fieldSchema[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown field", name))
			continue
		}
		if value == nil {
			// Explicit null clears the field; always a legal shape.
			continue
		}
		if msg := validateKind(spec.Kind, value); msg != "" {
			problems = append(problems, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	if len(problems) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(problems, "; "))
	}
	return nil
}

const (
	maxStringLen = 256
	maxTextLen   = 8000
	maxListLen   = 100
)

func validateKind(kind fieldKind, value any) string {
	switch kind {
	case kindString:
		return validateString(value, maxStringLen)
	case kindText:
		return validateString(value, maxTextLen)
	case kindEmail:
		msg := validateString(value, maxStringLen)
		if msg != "" {
			return msg
		}
		if s := value.(string); s != "" && !strings.Contains(s, "@") {
			return "must be an email address"
		}
		return ""
	case kindYear:
		f, ok := value.(float64)
		if !ok || f != float64(int(f)) {
			return "must be a whole year"
		}
		year := int(f)
		if year < 100 || year > time.Now().Year() {
			return fmt.Sprintf("must be between 100 and %d", time.Now().Year())
		}
		return ""
	case kindCoordinates:
		coords, ok := value.(map[string]any)
		if !ok {
			return "must be an object with lat and lng"
		}
		lat, latOK := coords["lat"].(float64)
		lng, lngOK := coords["lng"].(float64)
		if !latOK || !lngOK {
			return "must be an object with numeric lat and lng"
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return "lat/lng out of range"
		}
		return ""
	case kindStringList:
		items, ok := value.([]any)
		if !ok {
			return "must be a list of strings"
		}
		if len(items) > maxListLen {
			return fmt.Sprintf("must have at most %d entries", maxListLen)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return "must be a list of strings"
			}
		}
		return ""
	case kindScheduleList:
		items, ok := value.([]any)
		if !ok {
			return "must be a list of schedule entries"
		}
		if len(items) > maxListLen {
			return fmt.Sprintf("must have at most %d entries", maxListLen)
		}
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				return "each schedule entry must be an object"
			}
			day, _ := entry["day"].(string)
			timeOfDay, _ := entry["time"].(string)
			if day == "" || timeOfDay == "" {
				return "each schedule entry needs day and time"
			}
		}
		return ""
	}
	return ""
}

func validateString(value any, maxLen int) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	if len(s) > maxLen {
		return fmt.Sprintf("must be at most %d characters", maxLen)
	}
	return ""
}
