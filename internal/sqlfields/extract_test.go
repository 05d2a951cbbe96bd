package sqlfields

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"plain and alias", "SELECT a, b AS c FROM t", []string{"a", "c"}},
		{"dot notation and aggregate alias", "SELECT t.id, COUNT(*) AS total FROM t GROUP BY t.id", []string{"id", "total"}},
		{"empty", "", []string{}},
		{"no from", "SELECT 1", []string{}},
		{"malformed", "SELEC a FRM t", []string{}},
		{"lowercase keywords", "select name, amount as total_amount from sales", []string{"name", "total_amount"}},
		{"quoted alias", `SELECT region AS "Sales Region", SUM(x) AS 'Total' FROM t`, []string{"Sales Region", "Total"}},
		{"backtick alias", "SELECT id AS `order_id` FROM orders", []string{"order_id"}},
		{"implicit alias", "SELECT o.amount * 2 doubled FROM orders o", []string{"doubled"}},
		{"star dropped", "SELECT * FROM t", []string{}},
		{"table star dropped", "SELECT t.*, u.name FROM t JOIN u ON t.id = u.id", []string{"name"}},
		{"bare aggregate dropped", "SELECT COUNT(*), category FROM t GROUP BY category", []string{"category"}},
		{"duplicates removed", "SELECT a, t.a, b FROM t", []string{"a", "b"}},
		{"line comment", "SELECT a, -- b,\n c FROM t", []string{"a", "c"}},
		{"block comment", "SELECT a, /* b, */ c FROM t", []string{"a", "c"}},
		{"comma in quoted literal", "SELECT 'x,y' AS label, v FROM t", []string{"label", "v"}},
		{"cte uses last select", "WITH base AS (SELECT id, amount FROM t) SELECT id, amount AS total FROM base", []string{"id", "total"}},
		{"multiline", "SELECT\n  customer_id,\n  SUM(amount) AS revenue\nFROM orders\nGROUP BY customer_id", []string{"customer_id", "revenue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %#v, want %#v", tt.sql, got, tt.want)
			}
		})
	}
}

// Commas inside function calls split the projection; the trailing alias
// still wins for the second half.
func TestExtract_CommaInsideFunctionSplits(t *testing.T) {
	got := Extract("SELECT COALESCE(a, b) AS x FROM t")
	want := []string{"COALESCE", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %#v, want %#v", got, want)
	}
}

func TestExtract_IsPure(t *testing.T) {
	sql := "SELECT a, b AS c FROM t"
	first := Extract(sql)
	second := Extract(sql)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract not deterministic: %v vs %v", first, second)
	}
}

func TestExtract_NeverNil(t *testing.T) {
	for _, sql := range []string{"", "   ", "garbage", "WITH x AS (", "SELECT FROM"} {
		if got := Extract(sql); got == nil {
			t.Errorf("Extract(%q) returned nil", sql)
		}
	}
}

func TestExtractAll(t *testing.T) {
	got := ExtractAll("SELECT a, b FROM t", "SELECT b, c FROM u")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractAll() = %v, want %v", got, want)
	}
}

func TestContains(t *testing.T) {
	if !Contains("SELECT a, b AS c FROM t", "c") {
		t.Error("expected c to be found")
	}
	if Contains("SELECT a, b AS c FROM t", "b") {
		t.Error("b is aliased away and should not be found")
	}
}
