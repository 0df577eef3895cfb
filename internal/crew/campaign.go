package crew

import "github.com/askdocs/askdocs/internal/ai"

// MarketingStages builds the four-role campaign pipeline. Stages run in
// this order and each one reads everything produced before it.
func MarketingStages(gen ai.IGenerator) *Pipeline {
	return NewPipeline(gen, []Stage{
		{
			Name: "Content Strategist",
			Role: "senior content strategist",
			Goal: "Design a content strategy that reaches the target audience and serves the campaign goal",
			Task: "Create a content strategy for the product \"{product_name}\" described as: {product_description}.\n" +
				"Target audience: {target_audience}.\nCampaign goal: {campaign_goal}.\n" +
				"Cover the key themes, channels, and content formats the campaign should use.",
		},
		{
			Name: "Copywriter",
			Role: "persuasive marketing copywriter",
			Goal: "Turn the strategy into concrete copy the campaign can ship",
			Task: "Write the campaign copy for \"{product_name}\": headlines, a short product pitch, " +
				"and two social media posts aimed at {target_audience}. Follow the content strategy.",
		},
		{
			Name: "SEO Specialist",
			Role: "SEO specialist",
			Goal: "Make the campaign content discoverable through organic search",
			Task: "Produce an SEO plan for the \"{product_name}\" campaign: primary and secondary keywords, " +
				"meta descriptions for the copy above, and on-page recommendations.",
		},
		{
			Name: "Campaign Manager",
			Role: "marketing campaign manager",
			Goal: "Assemble the team's work into an actionable campaign plan",
			Task: "Combine the strategy, copy, and SEO plan into a final campaign plan for \"{product_name}\" " +
				"with a launch timeline and success metrics tied to the goal: {campaign_goal}.",
		},
	})
}
