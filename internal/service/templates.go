package service

import (
	"fmt"

	"github.com/profilegate/screener/internal/domain/model"
)

// CategoryTemplate is the deterministic prompt material for one category.
// Templates are data so classifier and scorer prompts stay reproducible for
// the same record.
type CategoryTemplate struct {
	// Description characterizes the category for the compatibility check.
	Description string
	// Dimensions are the named scores the scorer must return.
	Dimensions []string
}

var categoryTemplates = map[model.Category]CategoryTemplate{
	model.CategoryEngineering: {
		Description: "a software engineering role: building, shipping, and operating software systems",
		Dimensions:  []string{"technical_depth", "system_design", "delivery_track_record"},
	},
	model.CategoryProduct: {
		Description: "a product management role: defining product direction, prioritization, and cross-functional execution",
		Dimensions:  []string{"product_sense", "execution", "stakeholder_management"},
	},
	model.CategoryDesign: {
		Description: "a design role: user experience, interaction, and visual design work",
		Dimensions:  []string{"craft", "user_empathy", "portfolio_strength"},
	},
}

// TemplateFor returns the prompt template for a category.
func TemplateFor(category model.Category) (CategoryTemplate, error) {
	t, ok := categoryTemplates[category]
	if !ok {
		return CategoryTemplate{}, fmt.Errorf("no template for category %q", category)
	}
	return t, nil
}

// recordContext renders the record summary fields used in every prompt.
// Field order is fixed so identical records produce identical prompts.
func recordContext(summary *model.RecordSummary) string {
	return fmt.Sprintf("Name: %s\nHeadline: %s\nLocation: %s",
		summary.DisplayName, summary.Headline, summary.Location)
}
