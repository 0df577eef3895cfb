package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/crew"
	appErr "github.com/askdocs/askdocs/internal/pkg/errors"
)

func validBrief() CampaignBrief {
	return CampaignBrief{
		ProductName:        "Acme Widget",
		ProductDescription: "a well made widget",
		TargetAudience:     "makers",
		CampaignGoal:       "awareness",
	}
}

func TestCampaignValidation(t *testing.T) {
	svc := NewCampaignService(crew.MarketingStages(&fakeGenerator{answer: "ok"}), 0)

	briefs := []CampaignBrief{
		{},
		{ProductName: "Acme"},
		{ProductName: "Acme", ProductDescription: "d", TargetAudience: "  ", CampaignGoal: "g"},
	}
	for _, brief := range briefs {
		_, err := svc.Generate(context.Background(), brief)
		assert.True(t, appErr.IsValidation(err))
	}
}

func TestCampaignGenerate(t *testing.T) {
	svc := NewCampaignService(crew.MarketingStages(&fakeGenerator{answer: "stage output"}), 0)

	result, err := svc.Generate(context.Background(), validBrief())
	require.NoError(t, err)
	assert.Equal(t, "Acme Widget", result.Product)
	require.Len(t, result.Stages, 4)
	assert.Equal(t, "Campaign Manager", result.Stages[3].Stage)
	assert.Equal(t, result.Stages[3].Output, result.Plan)
}

func TestCampaignGenerationFailure(t *testing.T) {
	svc := NewCampaignService(crew.MarketingStages(&fakeGenerator{err: fmt.Errorf("quota")}), 0)
	_, err := svc.Generate(context.Background(), validBrief())
	assert.True(t, appErr.Is(err, appErr.ErrGeneration))
}
