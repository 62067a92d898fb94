package main

import (
	"net/http/httptest"
	"testing"
)

func TestParseIntQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.test/records?limit=25", nil)
	if got := parseIntQuery(r, "limit", 100); got != 25 {
		t.Fatalf("parseIntQuery=%d, want 25", got)
	}
	if got := parseIntQuery(r, "missing", 100); got != 100 {
		t.Fatalf("parseIntQuery=%d, want default 100", got)
	}

	r = httptest.NewRequest("GET", "http://example.test/records?limit=abc", nil)
	if got := parseIntQuery(r, "limit", 100); got != 100 {
		t.Fatalf("parseIntQuery=%d, want default on garbage", got)
	}
}

func TestParseBoolQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.test/records?stable=true&md_performed=nope", nil)

	v, ok := parseBoolQuery(r, "stable")
	if !ok || !v {
		t.Fatalf("parseBoolQuery(stable)=(%v, %v), want (true, true)", v, ok)
	}
	if _, ok := parseBoolQuery(r, "md_performed"); ok {
		t.Fatal("garbage value must not count as present")
	}
	if _, ok := parseBoolQuery(r, "absent"); ok {
		t.Fatal("absent key must not count as present")
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(9999, 1, 500); got != 500 {
		t.Fatalf("clampInt=%d, want 500", got)
	}
	if got := clampInt(0, 1, 500); got != 1 {
		t.Fatalf("clampInt=%d, want 1", got)
	}
	if got := clampInt(42, 1, 500); got != 42 {
		t.Fatalf("clampInt=%d, want 42", got)
	}
}
