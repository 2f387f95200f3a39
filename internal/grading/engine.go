package grading

import (
	"strings"
)

// Q is a minimal view of an exam question needed for grading.
type Q struct {
	Type           string // mcq, msq, tf, text
	Points         float64
	CorrectIndexes []int
}

// Answer is a single submitted response: option indexes for choice
// questions, free text otherwise.
type Answer struct {
	Indexes []int  `json:"indexes,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Result is the outcome of grading a single question response.
type Result struct {
	Points      float64 // points awarded automatically
	MaxPoints   float64 // the question's max points
	Correct     bool
	NeedsReview bool // true if manual review is required (text answers)
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, ans Answer) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, ans Answer) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, ans Answer) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		// unknown type: no auto credit, leave for review
		return Result{MaxPoints: q.Points, NeedsReview: true}
	}
	return s.Grade(q, ans)
}

// Engine options

type Option func(*config)

type config struct {
	TextPolicy    string // credit_nonempty | credit_min_length
	TextMinLength int
}

func WithTextPolicy(policy string, minLength int) Option {
	return func(c *config) {
		c.TextPolicy = policy
		c.TextMinLength = minLength
	}
}

// New installs built-in strategies.
func New(opts ...Option) Grader {
	cfg := &config{TextPolicy: "credit_nonempty"}
	for _, o := range opts {
		o(cfg)
	}
	choice := choiceStrategy{}
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq":  choice,
			"msq":  choice,
			"tf":   choice,
			"text": textStrategy{policy: cfg.TextPolicy, minLength: cfg.TextMinLength},
		},
	}
}

// --- Strategies ---

// choiceStrategy covers mcq, msq and tf: the submitted index set must equal
// the configured correct set exactly. No partial credit for partial overlap.
type choiceStrategy struct{}

func (choiceStrategy) Grade(q Q, ans Answer) Result {
	res := Result{MaxPoints: q.Points}
	if setEqual(toSet(ans.Indexes), toSet(q.CorrectIndexes)) && len(q.CorrectIndexes) > 0 {
		res.Points = q.Points
		res.Correct = true
	}
	return res
}

// textStrategy credits provisionally per policy; the answer is always
// flagged for manual review since no real grading happened.
type textStrategy struct {
	policy    string
	minLength int
}

func (s textStrategy) Grade(q Q, ans Answer) Result {
	res := Result{MaxPoints: q.Points, NeedsReview: true}
	text := strings.TrimSpace(ans.Text)
	switch s.policy {
	case "credit_min_length":
		if len(text) >= s.minLength && text != "" {
			res.Points = q.Points
			res.Correct = true
		}
	default: // credit_nonempty
		if text != "" {
			res.Points = q.Points
			res.Correct = true
		}
	}
	return res
}

// helpers

func toSet(arr []int) map[int]struct{} {
	m := make(map[int]struct{}, len(arr))
	for _, v := range arr {
		m[v] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
