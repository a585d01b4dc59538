package optim

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2, 3}, {10, 20}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Size() != 6 {
		t.Errorf("expected 6 grid points, got %d", g.Size())
	}

	best, score, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return math.Abs(p["a"]-2) + math.Abs(p["b"]-20), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 6 {
		t.Errorf("expected 6 trials, got %d", len(trials))
	}
	if best["a"] != 2 || best["b"] != 20 || score != 0 {
		t.Errorf("expected a=2 b=20 score 0, got %v score %v", best, score)
	}
	if trials[0].Params["a"] != 1 || trials[1].Params["b"] != 20 {
		t.Errorf("expected last parameter to vary fastest, got %v then %v", trials[0].Params, trials[1].Params)
	}
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g, _ := NewGridSearch([]string{"n"}, [][]float64{{1, 2, 3}})
	boom := errors.New("boom")
	best, score, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		switch p["n"] {
		case 1:
			return 0, boom
		case 2:
			return math.NaN(), nil
		}
		return 5, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best["n"] != 3 || score != 5 {
		t.Errorf("expected n=3 with score 5, got %v %v", best, score)
	}
	if !errors.Is(trials[0].Err, boom) {
		t.Errorf("expected failure recorded, got %v", trials[0].Err)
	}
}

func TestGridSearchNoSuccess(t *testing.T) {
	g, _ := NewGridSearch([]string{"n"}, [][]float64{{1}})
	best, score, _, err := g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, errors.New("nope")
	})
	if err != nil {
		t.Fatal(err)
	}
	if best != nil || !math.IsNaN(score) {
		t.Errorf("expected no best point, got %v %v", best, score)
	}
}

func TestGridSearchCancelled(t *testing.T) {
	g, _ := NewGridSearch([]string{"n"}, [][]float64{{1, 2, 3}})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, _, err := g.Search(ctx, func(context.Context, map[string]float64) (float64, error) {
		calls++
		cancel()
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected search to stop after 1 call, got %d", calls)
	}
}

func TestNewGridSearchInvalid(t *testing.T) {
	if _, err := NewGridSearch([]string{"a"}, nil); err == nil {
		t.Error("expected error for missing range")
	}
	if _, err := NewGridSearch([]string{"a"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}
}
