package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryOther is the fallback category for unclassifiable tools.
const CategoryOther = "other"

// CategorySlugs is the fixed set of allowed category slugs. The classifier
// coerces anything outside this set to CategoryOther.
var CategorySlugs = []string{
	"image-generation",
	"text-generation",
	"coding",
	"video-generation",
	"audio",
	"document",
	"marketing",
	"data-analysis",
	"design",
	"productivity",
	"search-research",
	"chatbot",
	"education",
	CategoryOther,
}

var categorySlugSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(CategorySlugs))
	for _, slug := range CategorySlugs {
		set[slug] = struct{}{}
	}
	return set
}()

// ValidCategorySlug reports whether slug is one of the allowed categories.
func ValidCategorySlug(slug string) bool {
	_, ok := categorySlugSet[slug]
	return ok
}

// Pricing types.
const (
	PricingFree     = "free"
	PricingFreemium = "freemium"
	PricingPaid     = "paid"
	PricingContact  = "contact"
)

// ValidPricingType reports whether pricing is one of the four allowed values.
func ValidPricingType(pricing string) bool {
	switch pricing {
	case PricingFree, PricingFreemium, PricingPaid, PricingContact:
		return true
	}
	return false
}

// Category is a row in the categories lookup table (slug → id).
type Category struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Slug      string    `db:"slug"       json:"slug"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
