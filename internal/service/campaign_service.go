package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/crew"
	"github.com/askdocs/askdocs/internal/pkg/errors"
)

type CampaignBrief struct {
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	TargetAudience     string `json:"target_audience"`
	CampaignGoal       string `json:"campaign_goal"`
}

type CampaignResult struct {
	Product string             `json:"product"`
	Stages  []crew.StageOutput `json:"stages"`
	Plan    string             `json:"plan"`
}

type CampaignService struct {
	pipeline *crew.Pipeline
	timeout  time.Duration
}

func NewCampaignService(pipeline *crew.Pipeline, timeout time.Duration) *CampaignService {
	return &CampaignService{pipeline: pipeline, timeout: timeout}
}

// Generate runs the campaign pipeline for the brief. The Plan field of
// the result is the final stage's output; every intermediate stage is
// kept so callers can show the full trail.
func (s *CampaignService) Generate(ctx context.Context, brief CampaignBrief) (*CampaignResult, error) {
	if err := validateBrief(brief); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	outputs, err := s.pipeline.Run(ctx, map[string]string{
		"product_name":        brief.ProductName,
		"product_description": brief.ProductDescription,
		"target_audience":     brief.TargetAudience,
		"campaign_goal":       brief.CampaignGoal,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: campaign generation failed: %s", errors.ErrGeneration, err)
	}
	return &CampaignResult{
		Product: brief.ProductName,
		Stages:  outputs,
		Plan:    outputs[len(outputs)-1].Output,
	}, nil
}

func validateBrief(brief CampaignBrief) error {
	fields := map[string]string{
		"product_name":        brief.ProductName,
		"product_description": brief.ProductDescription,
		"target_audience":     brief.TargetAudience,
		"campaign_goal":       brief.CampaignGoal,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must not be empty", errors.ErrValidation, name)
		}
	}
	return nil
}
