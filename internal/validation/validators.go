package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kmettler/habitloop/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("frequency_unit", validateFrequencyUnit); err != nil {
		panic(fmt.Sprintf("failed to register frequency_unit validator: %v", err))
	}
	if err := Validate.RegisterValidation("fact_category", validateFactCategory); err != nil {
		panic(fmt.Sprintf("failed to register fact_category validator: %v", err))
	}
}

// validateFrequencyUnit validates that a string is a valid FrequencyUnit enum value
func validateFrequencyUnit(fl validator.FieldLevel) bool {
	return ValidateFrequencyUnit(fl.Field().String()) == nil
}

// validateFactCategory validates that a string is a valid FactCategory enum value
func validateFactCategory(fl validator.FieldLevel) bool {
	return ValidateFactCategory(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateFrequencyUnit validates a FrequencyUnit string value
func ValidateFrequencyUnit(value string) error {
	switch models.FrequencyUnit(value) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
		return nil
	default:
		return fmt.Errorf("invalid frequency_unit: %s (must be 'daily', 'weekly', or 'monthly')", value)
	}
}

// ValidateFactCategory validates a FactCategory string value
func ValidateFactCategory(value string) error {
	switch models.FactCategory(value) {
	case models.FactCategoryPreference, models.FactCategorySchedule, models.FactCategoryGoal,
		models.FactCategoryConstraint, models.FactCategoryOther:
		return nil
	default:
		return fmt.Errorf("invalid category: %s (must be 'preference', 'schedule', 'goal', 'constraint', or 'other')", value)
	}
}
