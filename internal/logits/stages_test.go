package logits

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func randomScores(rng *rand.Rand, n int, scale float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = (rng.Float64()*2 - 1) * scale
	}
	return x
}

func countNonZero(x []float64) int {
	n := 0
	for _, v := range x {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestSoftmaxSumsToOne(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for _, scale := range []float64{0.01, 1, 50, 1e4} {
		for range 50 {
			probs := Softmax(randomScores(rng, 1+rng.Intn(300), scale))
			for i, p := range probs {
				if p < 0 || math.IsNaN(p) {
					t.Fatalf("probability %d is %v", i, p)
				}
			}
			if s := sumOf(probs); math.Abs(s-1) > 1e-9 {
				t.Fatalf("scale %v: probabilities sum to %v", scale, s)
			}
		}
	}
}

func TestSoftmaxUniformFallback(t *testing.T) {
	t.Parallel()

	inf := math.Inf(-1)
	for _, in := range [][]float64{
		{inf, inf, inf, inf},
		{math.NaN(), math.NaN(), math.NaN(), math.NaN()},
	} {
		probs := Softmax(in)
		for i, p := range probs {
			if p != 0.25 {
				t.Fatalf("entry %d: expected uniform 0.25, got %v", i, p)
			}
		}
	}
	if got := Softmax(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}

func TestSoftmaxIsStableForLargeScores(t *testing.T) {
	t.Parallel()

	probs := Softmax([]float64{1000, 1000})
	if math.Abs(probs[0]-0.5) > eps || math.Abs(probs[1]-0.5) > eps {
		t.Fatalf("expected [0.5 0.5], got %v", probs)
	}
}

func TestScaleTemperature(t *testing.T) {
	t.Parallel()

	got := ScaleTemperature([]float32{1, -2, 4}, 0.5)
	want := []float64{2, -4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestApplyRepetitionPenalty(t *testing.T) {
	t.Parallel()

	scores := []float64{1, 1, 1, 1}
	got := ApplyRepetitionPenalty(scores, []int{0, 1}, 1.1, 5)
	if math.Abs(got[0]-1/1.15) > eps {
		t.Fatalf("older token: got %v want %v", got[0], 1/1.15)
	}
	if math.Abs(got[1]-1/1.2) > eps {
		t.Fatalf("most recent token: got %v want %v", got[1], 1/1.2)
	}
	if got[2] != 1 || got[3] != 1 {
		t.Fatalf("unrelated tokens changed: %v", got)
	}
	if scores[0] != 1 || scores[1] != 1 {
		t.Fatalf("input mutated: %v", scores)
	}
}

func TestApplyRepetitionPenaltyWindow(t *testing.T) {
	t.Parallel()

	scores := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	// only the last five (ids 2..6) fall inside the window
	got := ApplyRepetitionPenalty(scores, []int{0, 1, 2, 3, 4, 5, 6}, 1.1, 5)
	if got[0] != 2 || got[1] != 2 || got[7] != 2 {
		t.Fatalf("tokens outside the window changed: %v", got)
	}
	for j, id := range []int{2, 3, 4, 5, 6} {
		want := 2 / PenaltyFor(1.1, j, 5)
		if math.Abs(got[id]-want) > eps {
			t.Fatalf("id %d: got %v want %v", id, got[id], want)
		}
	}
	if math.Abs(PenaltyFor(1.1, 4, 5)-1.2) > eps {
		t.Fatalf("most recent penalty should be 1.2")
	}
	if p := PenaltyFor(1.1, 0, 5); p <= 1.1 || p >= 1.2 {
		t.Fatalf("oldest penalty %v outside (1.1, 1.2)", p)
	}
}

func TestApplyRepetitionPenaltyRepeatsAndRange(t *testing.T) {
	t.Parallel()

	scores := []float64{1, 1, 1}
	got := ApplyRepetitionPenalty(scores, []int{-1, 1, 1, 7}, 1.1, 5)
	want := 1 / PenaltyFor(1.1, 1, 4) / PenaltyFor(1.1, 2, 4)
	if math.Abs(got[1]-want) > eps {
		t.Fatalf("repeated id: got %v want %v", got[1], want)
	}
	if got[0] != 1 || got[2] != 1 {
		t.Fatalf("out of range ids touched other scores: %v", got)
	}

	if got := ApplyRepetitionPenalty(scores, []int{0}, 0, 5); got[0] != 1 {
		t.Fatalf("zero base should disable the penalty")
	}
}

func TestTopKKeepsAtMostK(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	for range 100 {
		n := 2 + rng.Intn(200)
		probs := Softmax(randomScores(rng, n, 5))
		k := 1 + rng.Intn(n-1)
		out := TopK(probs, k)
		if c := countNonZero(out); c > k {
			t.Fatalf("k=%d: %d non-zero entries", k, c)
		}
		if s := sumOf(out); math.Abs(s-1) > 1e-9 {
			t.Fatalf("k=%d: sum %v", k, s)
		}
		// every kept entry is at least as probable as every dropped one
		minKept, maxDropped := math.Inf(1), math.Inf(-1)
		for i := range out {
			if out[i] > 0 {
				minKept = math.Min(minKept, probs[i])
			} else {
				maxDropped = math.Max(maxDropped, probs[i])
			}
		}
		if maxDropped > minKept {
			t.Fatalf("dropped %v while keeping %v", maxDropped, minKept)
		}
	}
}

func TestTopK(t *testing.T) {
	t.Parallel()

	out := TopK([]float64{0.1, 0.4, 0.2, 0.3}, 2)
	want := []float64{0, 0.4 / 0.7, 0, 0.3 / 0.7}
	for i := range want {
		if math.Abs(out[i]-want[i]) > eps {
			t.Fatalf("got %v want %v", out, want)
		}
	}

	// ties go to the lower id
	out = TopK([]float64{0.25, 0.25, 0.25, 0.25}, 1)
	if out[0] != 1 || countNonZero(out) != 1 {
		t.Fatalf("tie: got %v", out)
	}

	// zero mass spreads 1/k over the selection
	out = TopK([]float64{0, 0, 0, 0}, 2)
	if out[0] != 0.5 || out[1] != 0.5 || out[2] != 0 || out[3] != 0 {
		t.Fatalf("zero mass: got %v", out)
	}

	// disabled outside (0, n)
	in := []float64{0.5, 0.5}
	for _, k := range []int{0, 2, 3} {
		out = TopK(in, k)
		if out[0] != 0.5 || out[1] != 0.5 {
			t.Fatalf("k=%d should not filter: %v", k, out)
		}
	}
}

func TestTopPMinimalPrefix(t *testing.T) {
	t.Parallel()

	probs := []float64{0.2, 0.5, 0.3}
	tests := []struct {
		p    float64
		want []float64
	}{
		{0.1, []float64{0, 1, 0}},
		{0.5, []float64{0, 1, 0}},
		{0.7, []float64{0, 0.5 / 0.8, 0.3 / 0.8}},
		{0.95, []float64{0.2, 0.5, 0.3}},
	}
	for _, tt := range tests {
		out := TopP(probs, tt.p)
		for i := range tt.want {
			if math.Abs(out[i]-tt.want[i]) > eps {
				t.Fatalf("p=%v: got %v want %v", tt.p, out, tt.want)
			}
		}
	}
}

func TestTopPProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	for range 100 {
		probs := Softmax(randomScores(rng, 1+rng.Intn(100), 4))
		p := 0.05 + rng.Float64()*0.9
		out := TopP(probs, p)
		kept := countNonZero(out)
		if kept < 1 {
			t.Fatalf("nucleus is empty")
		}
		// the kept mass reaches p, and dropping the least probable kept
		// entry would fall short of it
		var mass, least float64 = 0, math.Inf(1)
		for i := range out {
			if out[i] > 0 {
				mass += probs[i]
				least = math.Min(least, probs[i])
			}
		}
		if mass < p-1e-12 && kept < len(probs) {
			t.Fatalf("nucleus mass %v below p=%v", mass, p)
		}
		if kept > 1 && mass-least >= p+1e-12 {
			t.Fatalf("nucleus of %d is not minimal for p=%v", kept, p)
		}
	}
}

func TestTopPZeroMassIsUniform(t *testing.T) {
	t.Parallel()

	out := TopP([]float64{0, 0, 0, 0}, 0.5)
	for i, v := range out {
		if v != 0.25 {
			t.Fatalf("entry %d: got %v", i, v)
		}
	}
	if out := TopP([]float64{0.3, 0.7}, 1); out[0] != 0.3 {
		t.Fatalf("p=1 should not filter: %v", out)
	}
}

func TestDraw(t *testing.T) {
	t.Parallel()

	probs := []float64{0, 0.5, 0, 0.5}
	tests := []struct {
		r    float64
		want int
	}{
		{0, 1},
		{0.5, 1},
		{0.51, 3},
		{1, 3},
	}
	for _, tt := range tests {
		got, ok := Draw(probs, tt.r)
		if !ok || got != tt.want {
			t.Fatalf("r=%v: got %d,%v want %d", tt.r, got, ok, tt.want)
		}
	}
	if _, ok := Draw([]float64{0.3, 0.3, 0.3}, 1); ok {
		t.Fatalf("expected draw to fail when mass is short of r")
	}
}

func TestDrawCDF(t *testing.T) {
	t.Parallel()

	got, ok := DrawCDF([]float64{0.3, 0.3, 0.3}, 1)
	if !ok || got != 2 {
		t.Fatalf("got %d,%v want 2", got, ok)
	}
	got, ok = DrawCDF([]float64{0, 0.3, 0, 0.3}, 0)
	if !ok || got != 1 {
		t.Fatalf("zero draw: got %d,%v want 1", got, ok)
	}
	got, ok = DrawCDF([]float64{0.3, 0.3, 0.3}, 0.4)
	if !ok || got != 1 {
		t.Fatalf("mid draw: got %d,%v want 1", got, ok)
	}
	if _, ok := DrawCDF([]float64{0, 0}, 0.5); ok {
		t.Fatalf("expected failure without mass")
	}
	if _, ok := DrawCDF(nil, 0.5); ok {
		t.Fatalf("expected failure on empty input")
	}
}

func TestArgmax(t *testing.T) {
	t.Parallel()

	if got := Argmax([]float32{1, 3, 3, 2}); got != 1 {
		t.Fatalf("tie should pick lowest index, got %d", got)
	}
	if got := Argmax([]float64{math.NaN(), -5, -1}); got != 2 {
		t.Fatalf("NaN should not win, got %d", got)
	}
	if got := Argmax([]float64{math.Inf(-1), math.Inf(-1)}); got != 0 {
		t.Fatalf("got %d", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty slice")
		}
	}()
	Argmax([]float32{})
}

func sumOf(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
