package sampling

import "testing"

func TestWeightedFollowsCumulativeBuckets(t *testing.T) {
	weights := []float64{0.4, 0.4, 0.2}
	tests := []struct {
		draw float64
		want int
	}{
		{0.0, 0},
		{0.39, 0},
		{0.4, 1},
		{0.79, 1},
		{0.8, 2},
		{0.999, 2},
	}
	for _, tt := range tests {
		s := New(NewFixed(tt.draw))
		if got := s.Weighted(weights); got != tt.want {
			t.Errorf("draw %.3f: expected %d, got %d", tt.draw, tt.want, got)
		}
	}
}

func TestWeightedSkipsNonPositive(t *testing.T) {
	s := New(NewFixed(0.0, 0.99))
	weights := []float64{0, 1, -3}
	for i := 0; i < 2; i++ {
		if got := s.Weighted(weights); got != 1 {
			t.Fatalf("expected only index 1 to be chosen, got %d", got)
		}
	}
	if got := s.Weighted([]float64{0, 0}); got != -1 {
		t.Fatalf("expected -1 for all-zero weights, got %d", got)
	}
}

func TestWeightedDistribution(t *testing.T) {
	s := NewSeeded(42)
	counts := make([]int, 3)
	const n = 20000
	for i := 0; i < n; i++ {
		counts[s.Weighted([]float64{0.4, 0.4, 0.2})]++
	}
	want := []float64{0.4, 0.4, 0.2}
	for i, c := range counts {
		got := float64(c) / n
		if got < want[i]-0.03 || got > want[i]+0.03 {
			t.Errorf("bucket %d: expected ~%.2f, got %.3f", i, want[i], got)
		}
	}
}

func TestChoice(t *testing.T) {
	s := New(NewFixed(0.99))
	got, ok := Choice(s, []string{"a", "b", "c"})
	if !ok || got != "c" {
		t.Fatalf("expected c, got %q (ok=%v)", got, ok)
	}
	if _, ok := Choice(s, []string{}); ok {
		t.Fatal("expected empty choice to report false")
	}
}
