package license

// PlanLimits bounds what a subscription tier may do. A zero
// ConversionsPerMonth means unlimited.
type PlanLimits struct {
	ConversionsPerMonth int  `json:"conversionsPerMonth"`
	APIAccess           bool `json:"apiAccess,omitempty"`
	BatchProcessing     bool `json:"batchProcessing,omitempty"`
}

// Plan describes a subscription tier. The pipeline itself never
// enforces these limits; enforcement lives with the external
// subscription authority.
type Plan struct {
	Name     string     `json:"name"`
	Price    float64    `json:"price"`
	Features []string   `json:"features"`
	Limits   PlanLimits `json:"limits"`
}

// Plans returns the static tier catalog.
func Plans() map[string]Plan {
	return map[string]Plan{
		"FREE": {
			Name:     "Free",
			Price:    0,
			Features: []string{"5 conversions per month", "Basic voice conversion"},
			Limits:   PlanLimits{ConversionsPerMonth: 5},
		},
		"PRO": {
			Name:  "Pro",
			Price: 9.99,
			Features: []string{
				"Unlimited conversions",
				"Advanced voice customization",
				"Priority processing",
				"Download in multiple formats",
			},
			Limits: PlanLimits{},
		},
		"BUSINESS": {
			Name:  "Business",
			Price: 29.99,
			Features: []string{
				"Everything in Pro",
				"API access",
				"Batch processing",
				"Custom branding",
				"Priority support",
			},
			Limits: PlanLimits{APIAccess: true, BatchProcessing: true},
		},
	}
}
