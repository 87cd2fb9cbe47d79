package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"

	"gopkg.in/yaml.v3"
)

// Render écrit le rapport dans le format demandé : markdown, json ou yaml.
func Render(w io.Writer, r *models.Report, format string) error {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return Markdown(w, r)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errs.InvalidInput("unsupported report format %q", format)
	}
}

// Markdown écrit le rapport "parcours client".
func Markdown(w io.Writer, r *models.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Customer journey report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Orders: %d, products: %d, customers: %d, skipped: %d\n\n",
		r.Orders, r.Products, len(r.Customers), len(r.Skipped))

	b.WriteString("## Journey stages\n\n| Stage | Customers |\n|---|---:|\n")
	for _, s := range models.Stages() {
		fmt.Fprintf(&b, "| %s | %d |\n", s, r.StageCounts[s.String()])
	}

	writeEntries(&b, "Entry points by style", r.EntryStyles)
	writeEntries(&b, "Entry points by category", r.EntryCategories)

	b.WriteString("\n## Style flow\n\n")
	if len(r.StyleFlow) == 0 {
		b.WriteString("_No repeat purchases._\n")
	}
	for _, from := range sortedKeys(r.StyleFlow) {
		parts := make([]string, 0, len(r.StyleFlow[from]))
		for _, t := range r.StyleFlow[from] {
			parts = append(parts, fmt.Sprintf("%s (%.1f%%)", t.To, t.Probability*100))
		}
		fmt.Fprintf(&b, "- **%s** → %s\n", from, strings.Join(parts, ", "))
	}

	b.WriteString("\n## Stage transitions\n\n| From | To | Count | Probability |\n|---|---|---:|---:|\n")
	for _, s := range models.Stages() {
		for _, t := range r.StageTransitions[s.String()] {
			fmt.Fprintf(&b, "| %s | %s | %d | %.3f |\n", s, t.To, t.Count, t.Probability)
		}
	}

	if len(r.Builders) > 0 {
		b.WriteString("\n## Confidence builders\n\n| Product | Style | Support | Mean Δ score |\n|---|---|---:|---:|\n")
		for _, cb := range r.Builders {
			fmt.Fprintf(&b, "| %s | %s | %d | %+.3f |\n", cb.ProductID, cb.Style, cb.Support, cb.MeanDelta)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Data quality\n\n")
		for _, kind := range sortedKeys(r.Warnings) {
			fmt.Fprintf(&b, "- %s: %d\n", kind, r.Warnings[kind])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntries(b *strings.Builder, title string, eps []models.EntryPoint) {
	fmt.Fprintf(b, "\n## %s\n\n| Key | Customers | Share | Avg price |\n|---|---:|---:|---:|\n", title)
	for _, ep := range eps {
		fmt.Fprintf(b, "| %s | %d | %.1f%% | %s |\n", ep.Key, ep.Customers, ep.Share*100, ep.AvgRetailPrice.StringFixed(2))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
