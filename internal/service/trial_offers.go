package service

import (
	"github.com/shopspring/decimal"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
)

var (
	professionalMonthly = decimal.NewFromInt(99)
	enterpriseMonthly   = decimal.NewFromInt(299)
)

const (
	urgencyWindowDays  = 3
	urgencyDiscountPct = 50
	enterpriseUsage    = 100
)

// GenerateConversionOffers builds the offers shown to a trial. The urgency
// offer leads when the trial is about to end; the standard offer is always
// present; heavy users also see the enterprise plan.
func GenerateConversionOffers(daysRemaining, totalUsage int) []app.ConversionOffer {
	offers := make([]app.ConversionOffer, 0, 3)

	if daysRemaining <= urgencyWindowDays {
		offers = append(offers, app.ConversionOffer{
			ID:              "urgency-50",
			Kind:            app.OfferUrgency,
			Plan:            app.PlanProfessional,
			Title:           "Last chance: 50% off your first 3 months",
			Description:     "Your trial ends soon. Keep every record you created and save half.",
			MonthlyPrice:    professionalMonthly,
			DiscountPercent: urgencyDiscountPct,
			OfferPrice:      discounted(professionalMonthly, urgencyDiscountPct),
			Features:        professionalFeatures(),
			CTA:             "Claim 50% off",
			Urgent:          true,
		})
	}

	offers = append(offers, app.ConversionOffer{
		ID:           "standard-professional",
		Kind:         app.OfferStandard,
		Plan:         app.PlanProfessional,
		Title:        "Upgrade to Professional",
		Description:  "Move your trial data to permanent cloud storage.",
		MonthlyPrice: professionalMonthly,
		OfferPrice:   professionalMonthly,
		Features:     professionalFeatures(),
		CTA:          "Upgrade now",
	})

	if totalUsage > enterpriseUsage {
		offers = append(offers, app.ConversionOffer{
			ID:           "enterprise",
			Kind:         app.OfferEnterprise,
			Plan:         app.PlanEnterprise,
			Title:        "Enterprise for power users",
			Description:  "Unlimited organizations, dedicated support and custom workflows.",
			MonthlyPrice: enterpriseMonthly,
			OfferPrice:   enterpriseMonthly,
			Features: append(professionalFeatures(),
				"Multiple organizations",
				"Dedicated success manager",
				"Custom micro-apps"),
			CTA: "Talk to sales",
		})
	}
	return offers
}

func professionalFeatures() []string {
	return []string{
		"Permanent cloud storage",
		"Unlimited entities and transactions",
		"Multi-device sync",
		"Financial reports",
	}
}

func discounted(price decimal.Decimal, pct int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(100 - pct))).Div(decimal.NewFromInt(100)).Round(2)
}
