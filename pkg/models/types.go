package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → tables brutes, telles que lues depuis un CSV, SQLite ou MySQL.
*/

// Table est une table brute : en-têtes + lignes indexées par nom de colonne.
type Table struct {
	Name    string
	Columns []string
	Rows    []map[string]string
}

// HasColumn indique si la colonne existe dans l'en-tête.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

/*
PREPARE → produits et achats enrichis (taille, style).
*/

// Product représente un produit du catalogue avec les attributs dérivés du SKU et du nom.
type Product struct {
	ID          string
	Name        string
	SKU         string
	Category    string
	RetailPrice decimal.Decimal
	PriceKnown  bool   // false si retail_price illisible
	BandSize    string // "34" ; vide si SKU non reconnu
	CupSize     string // "AA" ; vide si SKU non reconnu
	Size        string // BandSize + CupSize
	Style       string // nom sans le suffixe " - couleur"
}

// HasSize indique si la taille a pu être extraite du SKU.
func (p Product) HasSize() bool {
	return p.BandSize != "" && p.CupSize != ""
}

// Order représente une ligne de commande brute après normalisation.
type Order struct {
	ID         string
	CustomerID string
	ProductID  string
	Status     string // en minuscules
	CreatedAt  time.Time
	Returned   bool
	Seq        int // position dans la table d'entrée (départage des égalités)
}

// Purchase est un achat préparé : commande + attributs produit joints (jointure gauche).
type Purchase struct {
	Order
	Matched     bool // false si le produit est absent du catalogue
	Category    string
	RetailPrice decimal.Decimal
	PriceKnown  bool
	BandSize    string
	CupSize     string
	Style       string
}

// HasSize indique si l'achat porte une taille exploitable.
func (p Purchase) HasSize() bool {
	return p.BandSize != "" && p.CupSize != ""
}

// CustomerHistory est la séquence chronologique des achats d'un client (immuable).
type CustomerHistory struct {
	CustomerID string
	Purchases  []Purchase
	Orderable  bool // false si un horodatage est illisible
}

/*
COMPUTE → étapes du parcours et structures de résultat
*/

// Stage est l'étape du parcours client.
type Stage int

const (
	FirstPurchase Stage = iota
	SizeExploration
	StyleExploration
	ConfidenceBuilding
	BrandLoyal
)

var stageNames = [...]string{
	FirstPurchase:      "FIRST_PURCHASE",
	SizeExploration:    "SIZE_EXPLORATION",
	StyleExploration:   "STYLE_EXPLORATION",
	ConfidenceBuilding: "CONFIDENCE_BUILDING",
	BrandLoyal:         "BRAND_LOYAL",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// MarshalText permet d'utiliser Stage comme clé/valeur JSON et YAML.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stages liste toutes les étapes dans l'ordre de déclaration.
func Stages() []Stage {
	return []Stage{FirstPurchase, SizeExploration, StyleExploration, ConfidenceBuilding, BrandLoyal}
}

// StageResult est la classification d'un client.
type StageResult struct {
	Stage Stage   `json:"stage" yaml:"stage"`
	Score float64 `json:"score" yaml:"score"`
}

// Transition est une destination pondérée (style ou catégorie).
type Transition struct {
	To          string  `json:"to" yaml:"to"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// StageTransition est une transition d'étape pondérée.
type StageTransition struct {
	To          Stage   `json:"to" yaml:"to"`
	Count       int     `json:"count" yaml:"count"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// EntryPoint décrit un point d'entrée (style ou catégorie du premier achat conservé).
type EntryPoint struct {
	Key            string          `json:"key" yaml:"key"`
	Customers      int             `json:"customers" yaml:"customers"`
	Share          float64         `json:"share" yaml:"share"`
	AvgRetailPrice decimal.Decimal `json:"avg_retail_price" yaml:"avg_retail_price"`
}

// ConfidenceBuilder est un produit dont l'achat fait monter la confiance.
type ConfidenceBuilder struct {
	ProductID string  `json:"product_id" yaml:"product_id"`
	Style     string  `json:"style" yaml:"style"`
	Support   int     `json:"support" yaml:"support"`
	MeanDelta float64 `json:"mean_delta" yaml:"mean_delta"`
}

// CustomerResult regroupe les résultats par client.
type CustomerResult struct {
	CustomerID  string      `json:"customer_id" yaml:"customer_id"`
	Progression []float64   `json:"progression" yaml:"progression"`
	Stages      []Stage     `json:"stages" yaml:"stages"` // étape après chaque achat
	Final       StageResult `json:"final" yaml:"final"`
}

// Report est le résultat complet d'une exécution.
type Report struct {
	RunID            string                       `json:"run_id" yaml:"run_id"`
	GeneratedAt      time.Time                    `json:"generated_at" yaml:"generated_at"`
	Orders           int                          `json:"orders" yaml:"orders"`
	Products         int                          `json:"products" yaml:"products"`
	Customers        []CustomerResult             `json:"customers" yaml:"customers"`
	Skipped          []string                     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	StageCounts      map[string]int               `json:"stage_counts" yaml:"stage_counts"`
	EntryStyles      []EntryPoint                 `json:"entry_styles" yaml:"entry_styles"`
	EntryCategories  []EntryPoint                 `json:"entry_categories" yaml:"entry_categories"`
	StyleFlow        map[string][]Transition      `json:"style_flow" yaml:"style_flow"`
	StageTransitions map[string][]StageTransition `json:"stage_transitions" yaml:"stage_transitions"`
	Builders         []ConfidenceBuilder          `json:"confidence_builders" yaml:"confidence_builders"`
	Warnings         map[string]int               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

/*
CONFIG → paramètres de l'analyse
*/

// Config contient les seuils passés explicitement au moteur.
type Config struct {
	StyleThreshold      int     // styles distincts pour STYLE_EXPLORATION (défaut 2)
	LoyaltyThreshold    int     // achats conservés pour BRAND_LOYAL (défaut 5)
	ConfidenceThreshold float64 // seuil strict de confiance (défaut 0.7)
	FlowMinProbability  float64 // filtre du flux de styles (défaut 0.10)
	BuilderMinSupport   int     // occurrences minimales d'un produit "builder" (défaut 3)
	Workers             int     // clients traités en parallèle
	Verbose             bool    // logs détaillés + barre de progression
}

// DefaultConfig renvoie les seuils par défaut.
func DefaultConfig() Config {
	return Config{
		StyleThreshold:      2,
		LoyaltyThreshold:    5,
		ConfidenceThreshold: 0.7,
		FlowMinProbability:  0.10,
		BuilderMinSupport:   3,
		Workers:             4,
	}
}
