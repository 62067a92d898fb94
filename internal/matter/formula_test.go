package matter

import "testing"

func TestParseFormula(t *testing.T) {
	c, err := ParseFormula("Cu3Ni")
	if err != nil {
		t.Fatalf("ParseFormula() err=%v", err)
	}
	if got := c.Count("Cu"); got != 3 {
		t.Fatalf("Cu count=%d, want 3", got)
	}
	if got := c.Count("Ni"); got != 1 {
		t.Fatalf("Ni count=%d, want 1", got)
	}
	if got := c.String(); got != "Cu3Ni" {
		t.Fatalf("String()=%q, want Cu3Ni", got)
	}
}

func TestParseFormula_Invalid(t *testing.T) {
	for _, bad := range []string{"", "3Cu", "cu"} {
		if _, err := ParseFormula(bad); err == nil {
			t.Fatalf("ParseFormula(%q) accepted", bad)
		}
	}
}

func TestCompositionReduce(t *testing.T) {
	c, err := ParseFormula("Cu32Ni32")
	if err != nil {
		t.Fatalf("ParseFormula() err=%v", err)
	}
	if got := c.Reduce().String(); got != "CuNi" {
		t.Fatalf("reduced=%q, want CuNi", got)
	}
}

func TestReducedFormula_CanonicalOrder(t *testing.T) {
	symbols := []string{"Ni", "Cu", "Ni", "Cu", "Cu", "Cu"}
	if got := ReducedFormula(symbols); got != "Cu2Ni" {
		t.Fatalf("ReducedFormula()=%q, want Cu2Ni", got)
	}
}

func TestCompositionFractions(t *testing.T) {
	c, err := ParseFormula("Cu3Ni")
	if err != nil {
		t.Fatalf("ParseFormula() err=%v", err)
	}
	if got := c.Fraction("Ni"); got != 0.25 {
		t.Fatalf("Ni fraction=%v, want 0.25", got)
	}
	if c.IsPure() {
		t.Fatalf("Cu3Ni reported pure")
	}
}
