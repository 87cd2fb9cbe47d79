package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixtures(t *testing.T) (orders, products string) {
	t.Helper()
	dir := t.TempDir()
	orders = filepath.Join(dir, "orders.csv")
	products = filepath.Join(dir, "products.csv")
	o := `id,customer_id,status,created_at,product_id
O1,C1,delivered,2025-01-01,P1
O2,C1,delivered,2025-01-11,P1
O3,C2,returned,2025-01-05,P2
`
	p := `product_id,name,sku,category,retail_price
P1,Classic Bra - Black,BRA001BK34A,Everyday,60.00
P2,Lace Bra - Nude,LAC001NU36B,Lace,65.00
`
	if err := os.WriteFile(orders, []byte(o), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(products, []byte(p), 0o644); err != nil {
		t.Fatal(err)
	}
	return orders, products
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_ReportJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	orders, products := writeFixtures(t)
	out, err := execute(t, "report", "--orders", orders, "--products", products, "--format", "json")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, `"run_id"`) || !strings.Contains(out, `"CONFIDENCE_BUILDING"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCLI_Classify(t *testing.T) {
	t.Chdir(t.TempDir())
	orders, products := writeFixtures(t)
	out, err := execute(t, "classify", "--orders", orders, "--products", products, "--customer", "C2")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.HasPrefix(out, "C2 ; SIZE_EXPLORATION ; 0.000000") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLI_ClassifyUnknownCustomer(t *testing.T) {
	t.Chdir(t.TempDir())
	orders, products := writeFixtures(t)
	if _, err := execute(t, "classify", "--orders", orders, "--products", products, "--customer", "C9"); err == nil {
		t.Fatal("expected error for unknown customer")
	}
}

func TestCLI_ProgressionPaddedCustomer(t *testing.T) {
	t.Chdir(t.TempDir())
	orders, products := writeFixtures(t)
	out, err := execute(t, "progression", "--orders", orders, "--products", products, "--customer", " C1 ")
	if err != nil {
		t.Fatalf("progression: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "1 ; 2025-01-01 ; P1 ; returned=false") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
}

func TestCLI_ClassifyPaddedCustomer(t *testing.T) {
	t.Chdir(t.TempDir())
	orders, products := writeFixtures(t)
	out, err := execute(t, "classify", "--orders", orders, "--products", products, "--customer", " C2")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.HasPrefix(out, "C2 ; SIZE_EXPLORATION") {
		t.Fatalf("unexpected output: %q", out)
	}
}
