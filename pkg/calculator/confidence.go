package calculator

import (
	"time"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"
)

// Pondérations fixes du score de confiance.
const (
	sizeWeight      = 0.4
	returnWeight    = 0.3
	frequencyWeight = 0.3

	neutralScore = 0.5

	// écart moyen (jours) -> 1.0 à 30 jours, 0.0 à 365 jours
	frequentGapDays = 30
	rareGapDays     = 365
)

const day = 24 * time.Hour

// Accumulator porte les statistiques courantes d'un préfixe d'historique.
// Add doit être appelé dans l'ordre chronologique ; chaque lecture vaut la formule
// appliquée au préfixe complet.
type Accumulator struct {
	cfg models.Config

	total     int
	returned  int
	completed int

	sized      int            // achats conservés avec taille
	sizeCounts map[string]int // (bande, bonnet) -> achats conservés
	modeCount  int

	first, last time.Time
	styles      map[string]struct{} // styles distincts des achats conservés
}

// NewAccumulator crée un accumulateur vide.
func NewAccumulator(cfg models.Config) *Accumulator {
	return &Accumulator{
		cfg:        cfg,
		sizeCounts: map[string]int{},
		styles:     map[string]struct{}{},
	}
}

// Add ajoute l'achat suivant du préfixe.
func (a *Accumulator) Add(p models.Purchase) {
	if a.total == 0 {
		a.first = p.CreatedAt
	}
	a.last = p.CreatedAt
	a.total++

	if p.Returned {
		a.returned++
		return
	}
	a.completed++
	if p.Style != "" {
		a.styles[p.Style] = struct{}{}
	}
	if p.HasSize() {
		a.sized++
		key := p.BandSize + "/" + p.CupSize
		a.sizeCounts[key]++
		if c := a.sizeCounts[key]; c > a.modeCount {
			a.modeCount = c
		}
	}
}

// Len renvoie la longueur du préfixe.
func (a *Accumulator) Len() int { return a.total }

// SizeConsistency : part des achats conservés ayant la taille la plus fréquente.
// Neutre (0.5) si au plus un achat conservé, ou aucun achat conservé avec taille.
// Les achats sans taille sont exclus du dénominateur.
func (a *Accumulator) SizeConsistency() float64 {
	if a.completed <= 1 || a.sized == 0 {
		return neutralScore
	}
	return float64(a.modeCount) / float64(a.sized)
}

// ReturnRate : retours / achats du préfixe.
func (a *Accumulator) ReturnRate() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.returned) / float64(a.total)
}

// FrequencyScore : écart moyen entre achats consécutifs, en jours entiers.
func (a *Accumulator) FrequencyScore() float64 {
	if a.total <= 1 {
		return neutralScore
	}
	avg := a.last.Sub(a.first) / time.Duration(a.total-1)
	gapDays := float64(avg / day)
	return clamp((rareGapDays-gapDays)/(rareGapDays-frequentGapDays), 0, 1)
}

// Score : 0.4*taille + 0.3*(1-retours) + 0.3*fréquence, borné à [0,1].
func (a *Accumulator) Score() float64 {
	s := sizeWeight*a.SizeConsistency() +
		returnWeight*(1-a.ReturnRate()) +
		frequencyWeight*a.FrequencyScore()
	return clamp(s, 0, 1)
}

// Stage classe le préfixe courant.
func (a *Accumulator) Stage() models.StageResult {
	if a.total == 0 {
		return models.StageResult{Stage: models.FirstPurchase, Score: 0}
	}
	confidence := a.Score()

	switch {
	case a.completed == 0:
		return models.StageResult{Stage: models.SizeExploration, Score: 0}
	case a.completed == 1 && a.returned == 0:
		return models.StageResult{Stage: models.FirstPurchase, Score: confidence}
	case a.completed >= 2 && len(a.styles) >= a.cfg.StyleThreshold:
		// avant les retours : exploration de styles même avec un retour
		return models.StageResult{Stage: models.StyleExploration, Score: confidence}
	case a.returned > 0:
		return models.StageResult{Stage: models.SizeExploration, Score: confidence}
	case a.completed >= a.cfg.LoyaltyThreshold && confidence > a.cfg.ConfidenceThreshold:
		return models.StageResult{Stage: models.BrandLoyal, Score: confidence}
	case confidence > a.cfg.ConfidenceThreshold:
		return models.StageResult{Stage: models.ConfidenceBuilding, Score: confidence}
	default:
		return models.StageResult{Stage: models.SizeExploration, Score: confidence}
	}
}

// Evaluate rejoue l'historique d'un client : score et étape après chaque achat.
func Evaluate(h models.CustomerHistory, cfg models.Config) models.CustomerResult {
	res := models.CustomerResult{
		CustomerID:  h.CustomerID,
		Progression: make([]float64, 0, len(h.Purchases)),
		Stages:      make([]models.Stage, 0, len(h.Purchases)),
	}
	acc := NewAccumulator(cfg)
	for _, p := range h.Purchases {
		acc.Add(p)
		res.Progression = append(res.Progression, acc.Score())
		res.Stages = append(res.Stages, acc.Stage().Stage)
	}
	res.Final = acc.Stage()
	return res
}

// Progression renvoie un score par achat, dans l'ordre.
func Progression(h models.CustomerHistory, cfg models.Config) []float64 {
	return Evaluate(h, cfg).Progression
}

// Classify renvoie l'étape et le score sur l'historique complet.
func Classify(h models.CustomerHistory, cfg models.Config) models.StageResult {
	acc := NewAccumulator(cfg)
	for _, p := range h.Purchases {
		acc.Add(p)
	}
	return acc.Stage()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
