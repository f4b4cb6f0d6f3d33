package util

import "testing"

func TestCanonicalJSONSortsKeysAtEveryDepth(t *testing.T) {
	a := map[string]any{"page": 2, "filter": map[string]any{"region": "Piedmont", "color": "red"}}
	type filter struct {
		Region string `json:"region"`
		Color  string `json:"color"`
	}
	type query struct {
		Page   int    `json:"page"`
		Filter filter `json:"filter"`
	}
	b := query{Page: 2, Filter: filter{Region: "Piedmont", Color: "red"}}

	ka, err := CanonicalJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	kb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"filter":{"color":"red","region":"Piedmont"},"page":2}`
	if ka != want || kb != want {
		t.Fatalf("got %s and %s, want %s", ka, kb, want)
	}
}

func TestCanonicalJSONKeepsLargeIntegers(t *testing.T) {
	got, err := CanonicalJSON(map[string]int64{"cursor": 9007199254740993})
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"cursor":9007199254740993}` {
		t.Fatalf("got %s", got)
	}
}

func TestCanonicalJSONError(t *testing.T) {
	if _, err := CanonicalJSON(map[string]any{"f": func() {}}); err == nil {
		t.Fatal("expected error for unsupported value")
	}
}
