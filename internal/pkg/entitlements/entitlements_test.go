package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownFeature(t *testing.T) {
	assert.True(t, KnownFeature(FeatureJobPosting))
	assert.True(t, KnownFeature(" cv_coaching "))
	assert.False(t, KnownFeature("time_travel"))
	assert.False(t, KnownFeature(""))
}

func TestPromptForCarriesRequiredPlanName(t *testing.T) {
	prompt := PromptFor(FeatureJobPosting)
	assert.Equal(t, "Entreprise", prompt.RequiredPlan)
	assert.NotEmpty(t, prompt.Title)
	assert.NotEmpty(t, prompt.Description)

	prompt = PromptFor(FeatureCVCoaching)
	assert.Equal(t, "Pro", prompt.RequiredPlan)
}

func TestPromptForUnknownFeatureFallsBack(t *testing.T) {
	prompt := PromptFor("time_travel")
	assert.NotEmpty(t, prompt.Title)
	assert.Empty(t, prompt.RequiredPlan)
}

func TestDefaultLimit(t *testing.T) {
	assert.Equal(t, int64(5), DefaultLimit(PlanBasic, FeatureCVAccessLimited))
	assert.Equal(t, int64(50), DefaultLimit(PlanPro, FeatureCVAccessLimited))
	assert.Equal(t, int64(2), DefaultLimit(PlanPro, FeatureCVCoaching))
	assert.Equal(t, int64(0), DefaultLimit(PlanEntreprise, FeatureCVAccessFull), "entreprise is uncapped")
	assert.Equal(t, int64(0), DefaultLimit("unknown", FeatureCVAccessLimited))
}

func TestPlanName(t *testing.T) {
	assert.Equal(t, "Basique", PlanName("basic"))
	assert.Equal(t, "Entreprise", PlanName(" ENTREPRISE "))
	assert.Equal(t, "legacy", PlanName("legacy"))
}

func TestFeaturesListsWholeCatalog(t *testing.T) {
	features := Features()
	assert.Len(t, features, 5)
	assert.Contains(t, features, FeatureTenderAccess)
}
