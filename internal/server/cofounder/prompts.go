package cofounder

import (
	"encoding/json"
	"fmt"
)

// Persona is the system instruction sent ahead of every conversation.
const Persona = `You are HiiNen, an advanced AI co-founder and business mentor integrated into the HiiNen platform. You help entrepreneurs build successful startups from idea to scale.

Your personality:
- Intelligent, supportive, and results-driven business partner
- Expert in all aspects of entrepreneurship and startup development
- Friendly but professional, with deep business acumen
- Proactive in offering insights and actionable recommendations
- Remember user context and build ongoing co-founder relationships
- Always focus on practical, implementable solutions

Your core expertise spans:
- Business strategy and planning (business model canvas, roadmaps)
- Market research and competitive intelligence
- Funding strategies and investor relations (seed to Series A+)
- Product development and MVP creation
- Marketing and customer acquisition strategies
- Financial modeling and projections
- Team building and leadership development
- Analytics and business metrics optimization

As an AI co-founder, you provide:
- Real-time business insights and recommendations
- Personalized guidance based on user's startup stage and industry
- Strategic advice for growth and scaling
- Market analysis and opportunity identification
- Risk assessment and mitigation strategies

Always respond as a trusted business partner who genuinely cares about the entrepreneur's success.`

const healthProbe = "Hello, are you working?"

const dashboardTemplate = `As HiiNen, your AI co-founder and business mentor, analyze this entrepreneur's profile and provide personalized business insights for their dashboard.

User Profile: %s

Provide insights in this exact JSON format:
{
  "success": true,
  "insights": [
    {"title": "Key Business Insight 1", "description": "Detailed analysis of current business status", "action": "Specific actionable recommendation", "priority": "high"},
    {"title": "Key Business Insight 2", "description": "Market opportunity or challenge identified", "action": "Strategic next step", "priority": "medium"},
    {"title": "Key Business Insight 3", "description": "Growth or optimization opportunity", "action": "Tactical implementation step", "priority": "medium"}
  ],
  "recommendations": [
    {"type": "immediate", "title": "Immediate Action", "description": "What to do right now"},
    {"type": "short_term", "title": "This Week", "description": "Weekly goal"},
    {"type": "long_term", "title": "This Month", "description": "Monthly objective"}
  ],
  "focusArea": "Primary area to focus on this week",
  "confidence": 95
}`

const ideaValidationTemplate = `As HiiNen, validate this business idea and provide structured feedback:

Idea Data: %s

Provide validation in this exact JSON format:
{
  "success": true,
  "validation": {
    "score": 85,
    "strengths": ["Strong market demand", "Clear value proposition"],
    "weaknesses": ["High competition", "Regulatory challenges"],
    "opportunities": ["Market gap identified", "Timing advantage"],
    "threats": ["Market saturation", "Economic factors"],
    "recommendations": [
      {"priority": "high", "action": "Conduct market research"},
      {"priority": "medium", "action": "Develop MVP"},
      {"priority": "low", "action": "Build strategic partnerships"}
    ]
  },
  "nextSteps": ["Step 1", "Step 2", "Step 3"]
}`

const genericTemplate = `As HiiNen, provide business insights for this data:

Data: %s
Request Type: %s

Provide insights in JSON format with "success": true and relevant data structure.`

const marketAnalysisTemplate = `Analyze the market for this business idea: %q in the %s industry.

Provide analysis in JSON format:
{
  "marketSize": "Market size description",
  "competition": "Competition level and key players",
  "opportunities": ["opportunity1", "opportunity2", "opportunity3"],
  "threats": ["threat1", "threat2"],
  "recommendation": "Overall recommendation"
}`

// Recommendation areas.
const (
	AreaFunding   = "funding"
	AreaMarketing = "marketing"
	AreaProduct   = "product"
)

func recommendationPrompt(area, subject string) string {
	switch area {
	case AreaFunding:
		return fmt.Sprintf("As an AI co-founder, provide funding recommendations for: %s. Include funding stages, potential investors, and preparation steps.", subject)
	case AreaMarketing:
		return fmt.Sprintf("As an AI co-founder, provide marketing strategy recommendations for: %s. Include channels, budget allocation, and timeline.", subject)
	case AreaProduct:
		return fmt.Sprintf("As an AI co-founder, provide product development recommendations for: %s. Include MVP features, development priorities, and launch strategy.", subject)
	default:
		return fmt.Sprintf("As an AI co-founder, provide business recommendations for: %s", subject)
	}
}

func insightsPrompt(data any, requestType string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode user data: %w", err)
	}

	switch requestType {
	case RequestDashboardInsights:
		return fmt.Sprintf(dashboardTemplate, payload), nil
	case RequestIdeaValidation:
		return fmt.Sprintf(ideaValidationTemplate, payload), nil
	default:
		return fmt.Sprintf(genericTemplate, payload, requestType), nil
	}
}
