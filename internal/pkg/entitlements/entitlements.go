package entitlements

import "strings"

// Plan codes sold in the catalog.
const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEntreprise = "entreprise"
)

// Feature codes gated by the entitlement resolver.
const (
	FeatureJobPosting      = "job_posting"
	FeatureCVCoaching      = "cv_coaching"
	FeatureCVAccessLimited = "cv_access_limited"
	FeatureCVAccessFull    = "cv_access_full"
	FeatureTenderAccess    = "tender_access"
)

// FeatureDescriptor is static configuration for a gated feature. It is not
// persisted per-user; the plan's feature list decides inclusion.
type FeatureDescriptor struct {
	Code         string
	Category     string
	RequiredPlan string
}

// UpgradePrompt is what the client renders when access is denied.
type UpgradePrompt struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	RequiredPlan string `json:"required_plan"`
}

var featureCatalog = map[string]FeatureDescriptor{
	FeatureJobPosting:      {Code: FeatureJobPosting, Category: "Recrutement", RequiredPlan: PlanEntreprise},
	FeatureCVCoaching:      {Code: FeatureCVCoaching, Category: "Coaching", RequiredPlan: PlanPro},
	FeatureCVAccessLimited: {Code: FeatureCVAccessLimited, Category: "CVthèque", RequiredPlan: PlanBasic},
	FeatureCVAccessFull:    {Code: FeatureCVAccessFull, Category: "CVthèque", RequiredPlan: PlanEntreprise},
	FeatureTenderAccess:    {Code: FeatureTenderAccess, Category: "Appels d'offres", RequiredPlan: PlanPro},
}

var planNames = map[string]string{
	PlanBasic:      "Basique",
	PlanPro:        "Pro",
	PlanEntreprise: "Entreprise",
}

var upgradePrompts = map[string]UpgradePrompt{
	FeatureJobPosting: {
		Title:       "Publiez vos offres d'emploi",
		Description: "La publication d'offres est réservée aux comptes Entreprise.",
	},
	FeatureCVCoaching: {
		Title:       "Coaching CV personnalisé",
		Description: "Le coaching CV est inclus à partir du plan Pro.",
	},
	FeatureCVAccessLimited: {
		Title:       "Accès à la CVthèque",
		Description: "Consultez les CV des candidats avec un abonnement Basique.",
	},
	FeatureCVAccessFull: {
		Title:       "CVthèque illimitée",
		Description: "L'accès illimité à la CVthèque nécessite le plan Entreprise.",
	},
	FeatureTenderAccess: {
		Title:       "Appels d'offres",
		Description: "L'accès aux appels d'offres est inclus à partir du plan Pro.",
	},
}

// defaultLimits caps feature consumption per plan. Zero means unlimited.
var defaultLimits = map[string]map[string]int64{
	PlanBasic: {
		FeatureCVAccessLimited: 5,
	},
	PlanPro: {
		FeatureCVAccessLimited: 50,
		FeatureCVCoaching:      2,
	},
	PlanEntreprise: {},
}

// KnownFeature reports whether the code names a gated feature.
func KnownFeature(code string) bool {
	_, ok := featureCatalog[strings.TrimSpace(code)]
	return ok
}

// Describe returns the static descriptor for a feature code.
func Describe(code string) (FeatureDescriptor, bool) {
	d, ok := featureCatalog[strings.TrimSpace(code)]
	return d, ok
}

// Features returns all gated feature codes.
func Features() []string {
	codes := make([]string, 0, len(featureCatalog))
	for code := range featureCatalog {
		codes = append(codes, code)
	}
	return codes
}

// PlanName maps a plan code to its display name, falling back to the code.
func PlanName(code string) string {
	if name, ok := planNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return code
}

// PromptFor returns the upgrade prompt a denied caller should render.
func PromptFor(feature string) UpgradePrompt {
	prompt, ok := upgradePrompts[feature]
	if !ok {
		prompt = UpgradePrompt{
			Title:       "Fonctionnalité réservée",
			Description: "Cette fonctionnalité nécessite un abonnement.",
		}
	}
	if d, ok := featureCatalog[feature]; ok {
		prompt.RequiredPlan = PlanName(d.RequiredPlan)
	}
	return prompt
}

// DefaultLimit returns the usage cap a lazily created record should carry for
// the given plan and feature. Zero means no cap.
func DefaultLimit(planCode, feature string) int64 {
	limits, ok := defaultLimits[strings.ToLower(strings.TrimSpace(planCode))]
	if !ok {
		return 0
	}
	return limits[feature]
}
