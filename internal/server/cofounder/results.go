package cofounder

import "github.com/dmitrijs2005/hiinen/internal/server/llm"

// Outcome is the common envelope of every result. On failure Error holds a
// message safe to show users and Details the underlying cause.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func (o Outcome) Succeeded() bool { return o.Success }

// Result is implemented by every insight shape and by *Failure.
type Result interface {
	Succeeded() bool
}

// Failure is returned when no typed result could be produced.
type Failure struct {
	Outcome
}

type Reply struct {
	Outcome
	Response string     `json:"response,omitempty"`
	Usage    *llm.Usage `json:"usage,omitempty"`
}

type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Priority    string `json:"priority"`
}

type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type DashboardInsights struct {
	Outcome
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	FocusArea       string           `json:"focusArea"`
	Confidence      float64          `json:"confidence"`
}

type PriorityAction struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
}

type Validation struct {
	Score           float64          `json:"score"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Opportunities   []string         `json:"opportunities"`
	Threats         []string         `json:"threats"`
	Recommendations []PriorityAction `json:"recommendations"`
}

type IdeaValidation struct {
	Outcome
	Validation *Validation `json:"validation"`
	NextSteps  []string    `json:"nextSteps"`
}

// GenericInsights carries model output for request types without a fixed
// shape.
type GenericInsights struct {
	Outcome
	RequestType string         `json:"requestType"`
	Data        map[string]any `json:"data"`
}

type MarketAnalysis struct {
	Outcome
	MarketSize     string   `json:"marketSize"`
	Competition    string   `json:"competition"`
	Opportunities  []string `json:"opportunities"`
	Threats        []string `json:"threats"`
	Recommendation string   `json:"recommendation"`
}

// nonNil keeps list fields absent from model output encoding as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (d *DashboardInsights) normalize() {
	d.Recommendations = nonNil(d.Recommendations)
}

func (i *IdeaValidation) normalize() {
	v := i.Validation
	v.Strengths = nonNil(v.Strengths)
	v.Weaknesses = nonNil(v.Weaknesses)
	v.Opportunities = nonNil(v.Opportunities)
	v.Threats = nonNil(v.Threats)
	v.Recommendations = nonNil(v.Recommendations)
	i.NextSteps = nonNil(i.NextSteps)
}

func (m *MarketAnalysis) normalize() {
	m.Opportunities = nonNil(m.Opportunities)
	m.Threats = nonNil(m.Threats)
}
