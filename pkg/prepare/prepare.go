package prepare

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"

	"github.com/shopspring/decimal"
)

var (
	// RequiredOrderColumns doivent être présentes dans la table des commandes.
	RequiredOrderColumns = []string{"id", "customer_id", "status", "created_at", "product_id"}
	// RequiredProductColumns doivent être présentes dans la table des produits.
	RequiredProductColumns = []string{"product_id", "name", "sku", "category", "retail_price"}

	orderAliases   = map[string]string{"user_id": "customer_id", "order_date": "created_at"}
	productAliases = map[string]string{"id": "product_id"}

	// ex: 'BRA028FO38AA' -> 38 / AA
	sizePattern = regexp.MustCompile(`(\d{2})([A-Z]{1,2})$`)
)

// Grille de tailles connue du catalogue : bandes 30..42 (pas de 2), bonnets AA/A/B.
var knownCups = map[string]bool{"AA": true, "A": true, "B": true}

const styleSeparator = " - "

// Dataset est la table préparée, calculée une seule fois et réutilisée par toutes les analyses.
type Dataset struct {
	Products  map[string]models.Product
	Histories []models.CustomerHistory // triés par CustomerID
	Orders    int
	Warnings  []errs.Warning

	index map[string]int
}

// History renvoie l'historique d'un client.
func (d *Dataset) History(customerID string) (models.CustomerHistory, bool) {
	i, ok := d.index[customerID]
	if !ok {
		return models.CustomerHistory{}, false
	}
	return d.Histories[i], true
}

// Prepare valide les colonnes, enrichit les produits et joint les commandes (jointure gauche).
// Les colonnes manquantes interrompent tout ; les problèmes par ligne deviennent des avertissements.
func Prepare(orders, products models.Table) (*Dataset, error) {
	if len(orders.Columns) == 0 || len(products.Columns) == 0 {
		return nil, errs.InvalidInput("orders and products must be tables with a header row")
	}
	orders = applyAliases(orders, orderAliases)
	products = applyAliases(products, productAliases)

	if missing := missingColumns(orders, RequiredOrderColumns); len(missing) > 0 {
		return nil, errs.MissingColumns("orders", missing)
	}
	if missing := missingColumns(products, RequiredProductColumns); len(missing) > 0 {
		return nil, errs.MissingColumns("products", missing)
	}

	ds := &Dataset{Products: make(map[string]models.Product, len(products.Rows))}

	for _, row := range products.Rows {
		p, warns := ParseProduct(row)
		ds.Warnings = append(ds.Warnings, warns...)
		if _, dup := ds.Products[p.ID]; !dup {
			ds.Products[p.ID] = p
		}
	}

	byCustomer := map[string]*models.CustomerHistory{}
	hasReturnedAt := orders.HasColumn("returned_at")

	for seq, row := range orders.Rows {
		o := models.Order{
			ID:         strings.TrimSpace(row["id"]),
			CustomerID: strings.TrimSpace(row["customer_id"]),
			ProductID:  strings.TrimSpace(row["product_id"]),
			Status:     strings.ToLower(strings.TrimSpace(row["status"])),
			Seq:        seq,
		}
		o.Returned = IsReturnStatus(o.Status)
		if hasReturnedAt && strings.TrimSpace(row["returned_at"]) != "" {
			o.Returned = true
		}
		if o.CustomerID == "" {
			ds.Warnings = append(ds.Warnings, errs.Warning{Kind: errs.EmptyCustomerID, Record: o.ID})
			continue
		}
		ds.Orders++

		h, ok := byCustomer[o.CustomerID]
		if !ok {
			h = &models.CustomerHistory{CustomerID: o.CustomerID, Orderable: true}
			byCustomer[o.CustomerID] = h
		}

		ts, err := ParseTimestamp(row["created_at"])
		if err != nil {
			ds.Warnings = append(ds.Warnings, errs.Warning{Kind: errs.BadTimestamp, Record: o.ID, Detail: err.Error()})
			h.Orderable = false
		}
		o.CreatedAt = ts

		h.Purchases = append(h.Purchases, join(o, ds, &ds.Warnings))
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ds.Histories = make([]models.CustomerHistory, 0, len(ids))
	ds.index = make(map[string]int, len(ids))
	for i, id := range ids {
		h := byCustomer[id]
		sort.SliceStable(h.Purchases, func(a, b int) bool {
			return h.Purchases[a].CreatedAt.Before(h.Purchases[b].CreatedAt)
		})
		ds.Histories = append(ds.Histories, *h)
		ds.index[id] = i
	}
	return ds, nil
}

func join(o models.Order, ds *Dataset, warnings *[]errs.Warning) models.Purchase {
	pu := models.Purchase{Order: o}
	p, ok := ds.Products[o.ProductID]
	if !ok {
		*warnings = append(*warnings, errs.Warning{Kind: errs.UnknownProduct, Record: o.ID, Detail: "product_id=" + o.ProductID})
		return pu
	}
	pu.Matched = true
	pu.Category = p.Category
	pu.RetailPrice = p.RetailPrice
	pu.PriceKnown = p.PriceKnown
	pu.BandSize = p.BandSize
	pu.CupSize = p.CupSize
	pu.Style = p.Style
	return pu
}

// ParseProduct dérive taille et style d'une ligne produit.
func ParseProduct(row map[string]string) (models.Product, []errs.Warning) {
	var warns []errs.Warning
	p := models.Product{
		ID:       strings.TrimSpace(row["product_id"]),
		Name:     strings.TrimSpace(row["name"]),
		SKU:      strings.TrimSpace(row["sku"]),
		Category: strings.TrimSpace(row["category"]),
	}
	p.Style = ExtractStyle(p.Name)

	band, cup, ok := ExtractSize(p.SKU)
	if ok {
		p.BandSize, p.CupSize, p.Size = band, cup, band+cup
		if !knownSize(band, cup) {
			warns = append(warns, errs.Warning{Kind: errs.SizeOutOfRange, Record: p.ID, Detail: p.Size})
		}
	} else {
		warns = append(warns, errs.Warning{Kind: errs.UnparseableSKU, Record: p.ID, Detail: p.SKU})
	}

	if raw := strings.TrimSpace(row["retail_price"]); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			warns = append(warns, errs.Warning{Kind: errs.BadPrice, Record: p.ID, Detail: raw})
		} else {
			p.RetailPrice, p.PriceKnown = price, true
		}
	} else {
		warns = append(warns, errs.Warning{Kind: errs.BadPrice, Record: p.ID, Detail: "empty"})
	}
	return p, warns
}

// ExtractSize lit bande et bonnet en fin de SKU ('BRA035BU32AA' -> "32", "AA").
func ExtractSize(sku string) (band, cup string, ok bool) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(sku))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ExtractStyle tronque le nom au premier " - " ("Classic Bra - Black" -> "Classic Bra").
func ExtractStyle(name string) string {
	if i := strings.Index(name, styleSeparator); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

// IsReturnStatus : statut "returned" ou "return".
func IsReturnStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "returned" || s == "return"
}

func knownSize(band, cup string) bool {
	n := int(band[0]-'0')*10 + int(band[1]-'0')
	if n < 30 || n > 42 || n%2 != 0 {
		return false
	}
	return knownCups[cup]
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepte RFC3339, DATETIME SQL (suffixe " UTC" toléré) et dates seules. Résultat en UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, " UTC")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func applyAliases(t models.Table, aliases map[string]string) models.Table {
	rename := map[string]string{}
	for from, to := range aliases {
		if t.HasColumn(from) && !t.HasColumn(to) {
			rename[from] = to
		}
	}
	if len(rename) == 0 {
		return t
	}
	out := models.Table{Name: t.Name, Columns: make([]string, len(t.Columns)), Rows: make([]map[string]string, len(t.Rows))}
	for i, c := range t.Columns {
		if to, ok := rename[c]; ok {
			c = to
		}
		out.Columns[i] = c
	}
	for i, row := range t.Rows {
		r := make(map[string]string, len(row))
		for k, v := range row {
			if to, ok := rename[k]; ok {
				k = to
			}
			r[k] = v
		}
		out.Rows[i] = r
	}
	return out
}

func missingColumns(t models.Table, required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
