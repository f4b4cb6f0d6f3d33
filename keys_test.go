package cellarcache

import "testing"

type sku string

func (s sku) CacheIdentifier() string { return "sku-" + string(s) }

func TestKeyForms(t *testing.T) {
	type query struct {
		Page   int    `json:"page"`
		Search string `json:"search,omitempty"`
	}
	cases := []struct {
		name string
		id   any
		want string
	}{
		{"string", "abc", "card:abc"},
		{"identifier", sku("42"), "card:sku-42"},
		{"int", 7, "card:7"},
		{"int64", int64(-3), "card:-3"},
		{"bool", true, "card:true"},
		{"nil", nil, "card:"},
		{"struct", query{Page: 2}, `card:{"page":2}`},
		{"map sorted", map[string]any{"z": 1, "a": "x"}, `card:{"a":"x","z":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key("card", tc.id); got != tc.want {
				t.Fatalf("Key=%q want %q", got, tc.want)
			}
		})
	}
}

func TestKeyEqualQueriesShareSlot(t *testing.T) {
	a := Key(CategoryCards, map[string]any{"page": 1, "filter": map[string]any{"color": "red", "year": 2019}})
	b := Key(CategoryCards, map[string]any{"filter": map[string]any{"year": 2019, "color": "red"}, "page": 1})
	if a != b {
		t.Fatalf("equal queries produced different keys:\n%s\n%s", a, b)
	}
}

func TestCategoryOfKey(t *testing.T) {
	if got := category("comments:abc"); got != "comments" {
		t.Fatalf("category=%q", got)
	}
	if got := category("bare"); got != "bare" {
		t.Fatalf("category=%q", got)
	}
}
