package calculator

import (
	"strings"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/prepare"
)

// Engine répond aux requêtes par client sur un jeu de données préparé.
type Engine struct {
	ds  *prepare.Dataset
	cfg models.Config
}

// NewEngine lie un Dataset déjà préparé et les seuils de l'analyse.
func NewEngine(ds *prepare.Dataset, cfg models.Config) *Engine {
	return &Engine{ds: ds, cfg: cfg}
}

func (e *Engine) history(customerID string) (models.CustomerHistory, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return models.CustomerHistory{}, errs.InvalidInput("empty customer id")
	}
	h, ok := e.ds.History(id)
	if !ok {
		return models.CustomerHistory{}, errs.InvalidInput("customer %q not found", id)
	}
	if !h.Orderable {
		return models.CustomerHistory{}, errs.InvalidInput("customer %q has purchase timestamps that cannot be ordered", id)
	}
	return h, nil
}

// Classify renvoie l'étape du parcours et le score d'un client.
func (e *Engine) Classify(customerID string) (models.StageResult, error) {
	h, err := e.history(customerID)
	if err != nil {
		return models.StageResult{}, err
	}
	return Classify(h, e.cfg), nil
}

// Progression renvoie le score de confiance après chaque achat du client.
func (e *Engine) Progression(customerID string) ([]float64, error) {
	h, err := e.history(customerID)
	if err != nil {
		return nil, err
	}
	return Progression(h, e.cfg), nil
}

// Evaluate renvoie progression, étapes et classification finale d'un client.
func (e *Engine) Evaluate(customerID string) (models.CustomerResult, error) {
	h, err := e.history(customerID)
	if err != nil {
		return models.CustomerResult{}, err
	}
	return Evaluate(h, e.cfg), nil
}

// Journey renvoie l'historique du client avec son évaluation, achat par achat.
func (e *Engine) Journey(customerID string) (models.CustomerHistory, models.CustomerResult, error) {
	h, err := e.history(customerID)
	if err != nil {
		return models.CustomerHistory{}, models.CustomerResult{}, err
	}
	return h, Evaluate(h, e.cfg), nil
}

// Orderable renvoie les historiques exploitables (horodatages lisibles).
func (e *Engine) Orderable() []models.CustomerHistory {
	out := make([]models.CustomerHistory, 0, len(e.ds.Histories))
	for _, h := range e.ds.Histories {
		if h.Orderable {
			out = append(out, h)
		}
	}
	return out
}

// StyleFlow calcule le flux de styles sur tous les clients exploitables.
func (e *Engine) StyleFlow() map[string][]models.Transition {
	return StyleFlow(e.Orderable(), ByStyle, e.cfg.FlowMinProbability)
}

// PredictNext renvoie les styles probables du prochain achat d'un client.
func (e *Engine) PredictNext(customerID string) ([]models.Transition, error) {
	h, err := e.history(customerID)
	if err != nil {
		return nil, err
	}
	return PredictNext(h, e.StyleFlow()), nil
}
