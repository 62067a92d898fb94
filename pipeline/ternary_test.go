package main

import (
	"reflect"
	"testing"
)

func TestSelectBaseElement_PrefersFCC(t *testing.T) {
	// Ni is fcc, Fe and Cr are bcc.
	if got := SelectBaseElement([]string{"Fe", "Cr", "Ni"}); got != "Ni" {
		t.Fatalf("SelectBaseElement=%q, want Ni", got)
	}
}

func TestSelectBaseElement_TieBreaksBySymbol(t *testing.T) {
	// Cu and Ni are both fcc; the larger symbol wins.
	if got := SelectBaseElement([]string{"Cu", "Ni", "Ti"}); got != "Ni" {
		t.Fatalf("SelectBaseElement=%q, want Ni", got)
	}
}

func TestGenerateTernaryRatios(t *testing.T) {
	got := GenerateTernaryRatios([]int{3, 4})
	want := [][3]int{{1, 1, 1}, {1, 1, 2}, {1, 2, 1}, {2, 1, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ratios=%v, want %v", got, want)
	}
}

func TestTernaryMixer_Generate(t *testing.T) {
	mixer := NewTernaryMixer("Cr", "Fe", "Ni", 1)
	if mixer.BaseElement() != "Ni" {
		t.Fatalf("BaseElement()=%q, want Ni", mixer.BaseElement())
	}

	s, err := mixer.Generate([3]int{1, 1, 2}, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	total := s.NumAtoms()
	if total != 108 {
		t.Fatalf("NumAtoms()=%d, want 108 (fcc 4-atom cell, 3^3 supercell)", total)
	}

	nCr := countSymbol(s.Symbols, "Cr")
	nFe := countSymbol(s.Symbols, "Fe")
	nNi := countSymbol(s.Symbols, "Ni")
	if nCr+nFe+nNi != total {
		t.Fatalf("counts %d+%d+%d != %d", nCr, nFe, nNi, total)
	}
	// 108*1/4=27, 108*2/4=54, remainder to the first element.
	if nFe != 27 || nNi != 54 {
		t.Fatalf("Fe=%d Ni=%d, want 27/54", nFe, nNi)
	}
	if nCr != 27 {
		t.Fatalf("Cr=%d, want 27", nCr)
	}
}

func TestTernaryMixer_RemainderGoesToFirstElement(t *testing.T) {
	mixer := NewTernaryMixer("Cr", "Fe", "Ni", 1)
	s, err := mixer.Generate([3]int{1, 1, 1}, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 108/3 divides evenly; each element gets 36.
	for _, elem := range []string{"Cr", "Fe", "Ni"} {
		if got := countSymbol(s.Symbols, elem); got != 36 {
			t.Fatalf("%s count=%d, want 36", elem, got)
		}
	}

	s, err = mixer.Generate([3]int{1, 1, 2}, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 32 atoms at 1:1:2 -> 8, 8, 16 exactly.
	if got := countSymbol(s.Symbols, "Ni"); got != 16 {
		t.Fatalf("Ni count=%d, want 16", got)
	}
}

func TestTernaryMixer_RejectsZeroPart(t *testing.T) {
	if _, err := NewTernaryMixer("Cr", "Fe", "Ni", 1).Generate([3]int{0, 1, 2}, 2); err == nil {
		t.Fatal("expected error for zero ratio part")
	}
}
