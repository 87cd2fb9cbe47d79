package calculator

import (
	"sort"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"

	"github.com/shopspring/decimal"
)

// UnknownKey regroupe les achats sans style/catégorie (produit absent du catalogue).
const UnknownKey = "unknown"

// KeyFunc extrait la clé d'agrégation d'un achat.
type KeyFunc func(models.Purchase) string

// ByStyle groupe par style.
func ByStyle(p models.Purchase) string { return orUnknown(p.Style) }

// ByCategory groupe par catégorie.
func ByCategory(p models.Purchase) string { return orUnknown(p.Category) }

func orUnknown(s string) string {
	if s == "" {
		return UnknownKey
	}
	return s
}

// EntryPoints : premier achat conservé de chaque client, groupé par clé.
// Les parts portent sur les clients ayant au moins un achat conservé (somme = 1).
func EntryPoints(histories []models.CustomerHistory, key KeyFunc) []models.EntryPoint {
	type bucket struct {
		customers int
		priceSum  decimal.Decimal
		priced    int64
	}
	buckets := map[string]*bucket{}
	total := 0

	for _, h := range histories {
		first, ok := firstCompleted(h)
		if !ok {
			continue
		}
		total++
		k := key(first)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.customers++
		if first.PriceKnown {
			b.priceSum = b.priceSum.Add(first.RetailPrice)
			b.priced++
		}
	}

	out := make([]models.EntryPoint, 0, len(buckets))
	for k, b := range buckets {
		ep := models.EntryPoint{
			Key:       k,
			Customers: b.customers,
			Share:     float64(b.customers) / float64(total),
		}
		if b.priced > 0 {
			ep.AvgRetailPrice = b.priceSum.Div(decimal.NewFromInt(b.priced)).Round(2)
		}
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Customers != out[j].Customers {
			return out[i].Customers > out[j].Customers
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// EntryShares renvoie les parts d'entrée sous forme de map clé -> ratio.
func EntryShares(eps []models.EntryPoint) map[string]float64 {
	out := make(map[string]float64, len(eps))
	for _, ep := range eps {
		out[ep.Key] = ep.Share
	}
	return out
}

// l'historique est déjà trié (horodatage puis ordre d'entrée)
func firstCompleted(h models.CustomerHistory) (models.Purchase, bool) {
	for _, p := range h.Purchases {
		if !p.Returned {
			return p, true
		}
	}
	return models.Purchase{}, false
}

// StyleFlow compte les transitions (style -> style suivant) sur tous les achats consécutifs,
// puis ne garde que les destinations de probabilité >= minProbability, triées par probabilité décroissante.
func StyleFlow(histories []models.CustomerHistory, key KeyFunc, minProbability float64) map[string][]models.Transition {
	counts := map[string]map[string]int{}
	for _, h := range histories {
		for i := 0; i+1 < len(h.Purchases); i++ {
			from, to := key(h.Purchases[i]), key(h.Purchases[i+1])
			row, ok := counts[from]
			if !ok {
				row = map[string]int{}
				counts[from] = row
			}
			row[to]++
		}
	}

	flow := map[string][]models.Transition{}
	for from, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		var kept []models.Transition
		for to, c := range row {
			p := float64(c) / float64(total)
			if p >= minProbability {
				kept = append(kept, models.Transition{To: to, Probability: p})
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].Probability != kept[j].Probability {
				return kept[i].Probability > kept[j].Probability
			}
			return kept[i].To < kept[j].To
		})
		flow[from] = kept
	}
	return flow
}

// StageTransitions compte les transitions d'étape consécutives par client et les convertit
// en probabilités par étape source. labels : client -> étape après chaque commande.
func StageTransitions(labels map[string][]models.Stage) map[models.Stage][]models.StageTransition {
	counts := map[models.Stage]map[models.Stage]int{}
	for _, seq := range labels {
		for i := 0; i+1 < len(seq); i++ {
			row, ok := counts[seq[i]]
			if !ok {
				row = map[models.Stage]int{}
				counts[seq[i]] = row
			}
			row[seq[i+1]]++
		}
	}

	out := make(map[models.Stage][]models.StageTransition, len(counts))
	for from, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		ts := make([]models.StageTransition, 0, len(row))
		for to, c := range row {
			ts = append(ts, models.StageTransition{To: to, Count: c, Probability: float64(c) / float64(total)})
		}
		sort.Slice(ts, func(i, j int) bool {
			if ts[i].Count != ts[j].Count {
				return ts[i].Count > ts[j].Count
			}
			return ts[i].To < ts[j].To
		})
		out[from] = ts
	}
	return out
}

// ConfidenceBuilders : pour chaque produit, variation moyenne du score au moment de son achat
// (hors premier achat). Garde les produits avec support >= minSupport et variation > 0.
func ConfidenceBuilders(histories []models.CustomerHistory, results []models.CustomerResult, minSupport int) []models.ConfidenceBuilder {
	type impact struct {
		style string
		sum   float64
		n     int
	}
	impacts := map[string]*impact{}
	for i, h := range histories {
		scores := results[i].Progression
		for j := 1; j < len(h.Purchases) && j < len(scores); j++ {
			p := h.Purchases[j]
			im, ok := impacts[p.ProductID]
			if !ok {
				im = &impact{style: orUnknown(p.Style)}
				impacts[p.ProductID] = im
			}
			im.sum += scores[j] - scores[j-1]
			im.n++
		}
	}

	var out []models.ConfidenceBuilder
	for id, im := range impacts {
		if im.n < minSupport {
			continue
		}
		mean := im.sum / float64(im.n)
		if mean <= 0 {
			continue
		}
		out = append(out, models.ConfidenceBuilder{ProductID: id, Style: im.style, Support: im.n, MeanDelta: mean})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanDelta != out[j].MeanDelta {
			return out[i].MeanDelta > out[j].MeanDelta
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// PredictNext renvoie les styles suivants probables après le dernier achat du client.
func PredictNext(h models.CustomerHistory, flow map[string][]models.Transition) []models.Transition {
	if len(h.Purchases) == 0 {
		return nil
	}
	return flow[ByStyle(h.Purchases[len(h.Purchases)-1])]
}
