package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/config"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/database"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/logger"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"
)

// Motifs des exports produits par les scripts de collecte.
const (
	OrdersPattern   = "simulated_orders_*.csv"
	ProductsPattern = "transformed_bra_products_*.csv"
)

// Load charge les tables commandes et produits depuis la source configurée :
// base SQL si dsn, sinon fichiers CSV explicites, sinon les derniers exports de data_dir.
func Load(ctx context.Context, cfg config.SourceConfig, log *logger.Logger) (orders, products models.Table, err error) {
	if cfg.DSN != "" {
		return loadSQL(ctx, cfg, log)
	}

	ordersPath, productsPath := cfg.OrdersCSV, cfg.ProductsCSV
	if cfg.DataDir != "" {
		if ordersPath == "" {
			if ordersPath, err = LatestCSV(cfg.DataDir, OrdersPattern); err != nil {
				return orders, products, err
			}
		}
		if productsPath == "" {
			if productsPath, err = LatestCSV(cfg.DataDir, ProductsPattern); err != nil {
				return orders, products, err
			}
		}
	}
	if ordersPath == "" || productsPath == "" {
		return orders, products, errs.Config("source", "no orders/products source configured")
	}

	log.Info("loading csv", "orders", ordersPath, "products", productsPath)
	if orders, err = LoadCSV(ordersPath); err != nil {
		return orders, products, err
	}
	if products, err = LoadCSV(productsPath); err != nil {
		return orders, products, err
	}
	return orders, products, nil
}

func loadSQL(ctx context.Context, cfg config.SourceConfig, log *logger.Logger) (orders, products models.Table, err error) {
	db, driver, _, err := database.Open(cfg.DSN)
	if err != nil {
		return orders, products, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	log.Info("connected", "driver", driver)

	if orders, err = database.LoadTable(ctx, db, cfg.OrdersTable); err != nil {
		return orders, products, err
	}
	if products, err = database.LoadTable(ctx, db, cfg.ProductsTable); err != nil {
		return orders, products, err
	}
	log.Debug("tables loaded", "orders", len(orders.Rows), "products", len(products.Rows))
	return orders, products, nil
}

// LatestCSV renvoie le fichier le plus récent (ordre lexical des horodatages dans le nom).
func LatestCSV(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", errs.Config("source.data_dir", "bad pattern "+pattern).Wrap(err)
	}
	if len(matches) == 0 {
		return "", errs.InvalidInput("no data files in %s matching %q", dir, pattern)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LoadCSV lit un fichier CSV avec ligne d'en-tête.
func LoadCSV(path string) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Table{}, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return models.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

// ReadCSV lit un CSV ; les en-têtes sont normalisés (minuscules, espaces retirés).
func ReadCSV(r io.Reader) (models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.Table{}, errs.InvalidInput("empty csv: no header row")
	}
	if err != nil {
		return models.Table{}, errs.InvalidInput("not a csv table").Wrap(err)
	}
	t := models.Table{Columns: make([]string, len(header))}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		t.Columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Table{}, errs.InvalidInput("malformed csv").Wrap(err)
		}
		row := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
