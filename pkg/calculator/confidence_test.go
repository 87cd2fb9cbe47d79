package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// purchase builds a prepared purchase placed `days` after t0.
func purchase(id string, days int, style, band, cup string, returned bool) models.Purchase {
	return models.Purchase{
		Order: models.Order{
			ID:        id,
			ProductID: "P-" + style + band + cup,
			CreatedAt: t0.AddDate(0, 0, days),
			Returned:  returned,
		},
		Matched:  style != "",
		Style:    style,
		BandSize: band,
		CupSize:  cup,
	}
}

func history(id string, ps ...models.Purchase) models.CustomerHistory {
	return models.CustomerHistory{CustomerID: id, Purchases: ps, Orderable: true}
}

// prefixScore recomputes the score from scratch over a prefix, without the accumulator.
func prefixScore(ps []models.Purchase) float64 {
	completed, returned, sized := 0, 0, 0
	counts := map[string]int{}
	for _, p := range ps {
		if p.Returned {
			returned++
			continue
		}
		completed++
		if p.HasSize() {
			sized++
			counts[p.BandSize+p.CupSize]++
		}
	}
	size := 0.5
	if completed > 1 && sized > 0 {
		best := 0
		for _, c := range counts {
			if c > best {
				best = c
			}
		}
		size = float64(best) / float64(sized)
	}
	ret := float64(returned) / float64(len(ps))
	freq := 0.5
	if len(ps) > 1 {
		var sum time.Duration
		for i := 1; i < len(ps); i++ {
			sum += ps[i].CreatedAt.Sub(ps[i-1].CreatedAt)
		}
		gap := float64((sum / time.Duration(len(ps)-1)) / (24 * time.Hour))
		freq = clamp((365-gap)/(365-30), 0, 1)
	}
	return clamp(0.4*size+0.3*(1-ret)+0.3*freq, 0, 1)
}

func TestSinglePurchase_FirstPurchase(t *testing.T) {
	h := history("C1", purchase("O1", 0, "Classic", "34", "A", false))
	res := Evaluate(h, models.DefaultConfig())
	if len(res.Progression) != 1 {
		t.Fatalf("got %d scores, want 1", len(res.Progression))
	}
	// 0.4*0.5 + 0.3*1 + 0.3*0.5
	if !almostEqual(res.Progression[0], 0.65) {
		t.Fatalf("got %.6f, want 0.65", res.Progression[0])
	}
	if res.Final.Stage != models.FirstPurchase {
		t.Fatalf("got %s, want FIRST_PURCHASE", res.Final.Stage)
	}
}

func TestTwoConsistentPurchases_ScoreOne(t *testing.T) {
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", false),
		purchase("O2", 10, "Classic", "34", "A", false),
	)
	acc := NewAccumulator(models.DefaultConfig())
	for _, p := range h.Purchases {
		acc.Add(p)
	}
	if !almostEqual(acc.SizeConsistency(), 1) || !almostEqual(acc.ReturnRate(), 0) || !almostEqual(acc.FrequencyScore(), 1) {
		t.Fatalf("unexpected components: size=%.3f ret=%.3f freq=%.3f",
			acc.SizeConsistency(), acc.ReturnRate(), acc.FrequencyScore())
	}
	if !almostEqual(acc.Score(), 1) {
		t.Fatalf("got %.6f, want 1.0", acc.Score())
	}
	if st := acc.Stage(); st.Stage != models.ConfidenceBuilding {
		t.Fatalf("got %s, want CONFIDENCE_BUILDING", st.Stage)
	}
}

func TestOneReturnOutOfTwo(t *testing.T) {
	acc := NewAccumulator(models.DefaultConfig())
	acc.Add(purchase("O1", 0, "Classic", "34", "A", false))
	acc.Add(purchase("O2", 30, "Classic", "36", "B", true))
	if !almostEqual(acc.ReturnRate(), 0.5) {
		t.Fatalf("got return rate %.3f, want 0.5", acc.ReturnRate())
	}
	// one completed purchase -> neutral size, 30 day gap -> freq 1
	want := 0.4*0.5 + 0.3*0.5 + 0.3*1
	if !almostEqual(acc.Score(), want) {
		t.Fatalf("got %.6f, want %.6f", acc.Score(), want)
	}
	if st := acc.Stage(); st.Stage != models.SizeExploration {
		t.Fatalf("got %s, want SIZE_EXPLORATION", st.Stage)
	}
}

func TestFrequencyScore_GapBounds(t *testing.T) {
	cases := []struct {
		gap  int
		want float64
	}{
		{10, 1},
		{30, 1},
		{365, 0},
		{400, 0},
		{197, (365.0 - 197) / 335},
	}
	for _, c := range cases {
		acc := NewAccumulator(models.DefaultConfig())
		acc.Add(purchase("O1", 0, "Classic", "34", "A", false))
		acc.Add(purchase("O2", c.gap, "Classic", "34", "A", false))
		if got := acc.FrequencyScore(); !almostEqual(got, c.want) {
			t.Fatalf("gap %d: got %.6f, want %.6f", c.gap, got, c.want)
		}
	}
}

func TestFrequencyScore_WholeDays(t *testing.T) {
	acc := NewAccumulator(models.DefaultConfig())
	a := purchase("O1", 0, "Classic", "34", "A", false)
	b := purchase("O2", 0, "Classic", "34", "A", false)
	b.CreatedAt = a.CreatedAt.Add(100*24*time.Hour + 20*time.Hour)
	acc.Add(a)
	acc.Add(b)
	if got, want := acc.FrequencyScore(), (365.0-100)/335; !almostEqual(got, want) {
		t.Fatalf("got %.6f, want %.6f", got, want)
	}
}

func TestMissingSizeIsNeutral(t *testing.T) {
	acc := NewAccumulator(models.DefaultConfig())
	acc.Add(purchase("O1", 0, "Classic", "", "", false))
	acc.Add(purchase("O2", 20, "Classic", "", "", false))
	if !almostEqual(acc.SizeConsistency(), 0.5) {
		t.Fatalf("got %.3f, want neutral 0.5", acc.SizeConsistency())
	}
}

func TestMissingSizeLeftOutOfDenominator(t *testing.T) {
	acc := NewAccumulator(models.DefaultConfig())
	acc.Add(purchase("O1", 0, "Classic", "", "", false))
	acc.Add(purchase("O2", 20, "Classic", "", "", false))
	acc.Add(purchase("O3", 40, "Classic", "34", "A", false))
	// un seul achat avec taille : 1/1
	if !almostEqual(acc.SizeConsistency(), 1) {
		t.Fatalf("got %.3f, want 1.0", acc.SizeConsistency())
	}
	acc.Add(purchase("O4", 60, "Classic", "36", "B", false))
	if !almostEqual(acc.SizeConsistency(), 0.5) {
		t.Fatalf("got %.3f, want 0.5", acc.SizeConsistency())
	}
}

func TestSizeConsistency_IgnoresReturns(t *testing.T) {
	acc := NewAccumulator(models.DefaultConfig())
	acc.Add(purchase("O1", 0, "Classic", "34", "A", false))
	acc.Add(purchase("O2", 10, "Classic", "36", "B", true))
	acc.Add(purchase("O3", 20, "Classic", "34", "A", false))
	acc.Add(purchase("O4", 30, "Classic", "32", "A", false))
	if got, want := acc.SizeConsistency(), 2.0/3; !almostEqual(got, want) {
		t.Fatalf("got %.6f, want %.6f", got, want)
	}
}

func TestBrandLoyal(t *testing.T) {
	var ps []models.Purchase
	for i := 0; i < 5; i++ {
		ps = append(ps, purchase("O", i*30, "Classic", "34", "A", false))
	}
	got := Classify(history("C1", ps...), models.DefaultConfig())
	if got.Stage != models.BrandLoyal {
		t.Fatalf("got %s, want BRAND_LOYAL", got.Stage)
	}
	if got.Score <= 0.7 {
		t.Fatalf("score %.3f should exceed threshold", got.Score)
	}
}

func TestStyleExplorationWinsOverReturns(t *testing.T) {
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", false),
		purchase("O2", 10, "Lace", "34", "A", true),
		purchase("O3", 20, "Lace", "34", "A", false),
		purchase("O4", 30, "Zero G", "34", "A", false),
	)
	if got := Classify(h, models.DefaultConfig()); got.Stage != models.StyleExploration {
		t.Fatalf("got %s, want STYLE_EXPLORATION", got.Stage)
	}
}

func TestAllReturned_SizeExplorationZero(t *testing.T) {
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", true),
		purchase("O2", 5, "Classic", "36", "A", true),
	)
	got := Classify(h, models.DefaultConfig())
	if got.Stage != models.SizeExploration || got.Score != 0 {
		t.Fatalf("got %s %.3f, want SIZE_EXPLORATION 0", got.Stage, got.Score)
	}
}

func TestEmptyHistory(t *testing.T) {
	got := Classify(history("C1"), models.DefaultConfig())
	if got.Stage != models.FirstPurchase || got.Score != 0 {
		t.Fatalf("got %s %.3f", got.Stage, got.Score)
	}
}

func TestLowConfidenceFallsBackToSizeExploration(t *testing.T) {
	// rare purchases, inconsistent sizes, single style
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", false),
		purchase("O2", 400, "Classic", "36", "B", false),
	)
	got := Classify(h, models.DefaultConfig())
	// 0.4*0.5 + 0.3 + 0 = 0.5
	if got.Stage != models.SizeExploration || !almostEqual(got.Score, 0.5) {
		t.Fatalf("got %s %.3f, want SIZE_EXPLORATION 0.5", got.Stage, got.Score)
	}
}

func TestAccumulatorMatchesPrefixFormula(t *testing.T) {
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", false),
		purchase("O2", 13, "Lace", "", "", false),
		purchase("O3", 13, "Lace", "36", "B", true),
		purchase("O4", 90, "Classic", "34", "A", false),
		purchase("O5", 250, "Zero G", "36", "B", false),
		purchase("O6", 251, "Classic", "34", "A", true),
		purchase("O7", 700, "Classic", "34", "A", false),
	)
	got := Progression(h, models.DefaultConfig())
	if len(got) != len(h.Purchases) {
		t.Fatalf("got %d scores, want %d", len(got), len(h.Purchases))
	}
	for i := range h.Purchases {
		want := prefixScore(h.Purchases[:i+1])
		if !almostEqual(got[i], want) {
			t.Fatalf("prefix %d: got %.9f, want %.9f", i+1, got[i], want)
		}
		if got[i] < 0 || got[i] > 1 {
			t.Fatalf("prefix %d: score %.3f out of range", i+1, got[i])
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	h := history("C1",
		purchase("O1", 0, "Classic", "34", "A", false),
		purchase("O2", 45, "Lace", "34", "A", true),
		purchase("O3", 80, "Lace", "34", "A", false),
	)
	a := Evaluate(h, models.DefaultConfig())
	b := Evaluate(h, models.DefaultConfig())
	if a.Final != b.Final || len(a.Progression) != len(b.Progression) {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
	for i := range a.Progression {
		if a.Progression[i] != b.Progression[i] || a.Stages[i] != b.Stages[i] {
			t.Fatalf("step %d differs", i)
		}
	}
}
