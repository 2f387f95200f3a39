package grading_test

import (
	"testing"

	"github.com/edumint/edumint/internal/grading"
)

func TestChoiceGrading_ExactSetEquality(t *testing.T) {
	g := grading.New()
	q := grading.Q{Type: "msq", Points: 2, CorrectIndexes: []int{0, 2}}

	cases := []struct {
		name    string
		indexes []int
		want    float64
	}{
		{"exact match", []int{0, 2}, 2},
		{"order independent", []int{2, 0}, 2},
		{"partial overlap", []int{0}, 0},
		{"superset", []int{0, 1, 2}, 0},
		{"disjoint", []int{1}, 0},
		{"empty", nil, 0},
	}
	for _, tc := range cases {
		res := g.Grade(q, grading.Answer{Indexes: tc.indexes})
		if res.Points != tc.want {
			t.Errorf("%s: got %v points, want %v", tc.name, res.Points, tc.want)
		}
		if res.MaxPoints != 2 {
			t.Errorf("%s: max points %v, want 2", tc.name, res.MaxPoints)
		}
	}
}

func TestSingleChoiceAndTrueFalse(t *testing.T) {
	g := grading.New()
	for _, typ := range []string{"mcq", "tf"} {
		q := grading.Q{Type: typ, Points: 1, CorrectIndexes: []int{1}}
		if res := g.Grade(q, grading.Answer{Indexes: []int{1}}); !res.Correct {
			t.Errorf("%s: correct answer not credited", typ)
		}
		if res := g.Grade(q, grading.Answer{Indexes: []int{0}}); res.Correct {
			t.Errorf("%s: wrong answer credited", typ)
		}
	}
}

func TestTextGrading_Policies(t *testing.T) {
	nonEmpty := grading.New(grading.WithTextPolicy("credit_nonempty", 0))
	q := grading.Q{Type: "text", Points: 1}

	if res := nonEmpty.Grade(q, grading.Answer{Text: "something"}); res.Points != 1 || !res.NeedsReview {
		t.Fatalf("nonempty text should be credited and flagged: %+v", res)
	}
	if res := nonEmpty.Grade(q, grading.Answer{Text: "   "}); res.Points != 0 {
		t.Fatalf("whitespace-only text credited: %+v", res)
	}

	minLen := grading.New(grading.WithTextPolicy("credit_min_length", 10))
	if res := minLen.Grade(q, grading.Answer{Text: "short"}); res.Points != 0 {
		t.Fatalf("below-minimum text credited: %+v", res)
	}
	if res := minLen.Grade(q, grading.Answer{Text: "long enough answer"}); res.Points != 1 {
		t.Fatalf("long text not credited: %+v", res)
	}
}

func TestUnknownTypeNeedsReview(t *testing.T) {
	g := grading.New()
	res := g.Grade(grading.Q{Type: "essay", Points: 3}, grading.Answer{Text: "x"})
	if res.Points != 0 || !res.NeedsReview {
		t.Fatalf("unknown type should earn nothing and need review: %+v", res)
	}
}
