package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNormalizeTabIDs verifies missing identifiers get their positional fallback.
func TestNormalizeTabIDs(t *testing.T) {
	in := []Tab{
		{Title: "a", URL: "https://a.example"},
		{ID: TabID(42), Title: "b", URL: "https://b.example"},
		{Title: "c", URL: "https://c.example"},
	}

	got := NormalizeTabIDs(in)

	want := []Tab{
		{ID: TabID(0), Title: "a", URL: "https://a.example"},
		{ID: TabID(42), Title: "b", URL: "https://b.example"},
		{ID: TabID(2), Title: "c", URL: "https://c.example"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeTabIDs mismatch (-want +got):\n%s", diff)
	}

	// The input must not be modified.
	if in[0].ID != nil {
		t.Error("NormalizeTabIDs modified its input")
	}
	for _, tab := range got {
		if tab.ID == nil {
			t.Errorf("tab %q left without an identifier", tab.Title)
		}
	}
}

// TestWithoutTab covers removing an existing and a missing identifier.
func TestWithoutTab(t *testing.T) {
	tabs := []Tab{{ID: TabID(1)}, {ID: TabID(2)}, {ID: TabID(3)}}

	tests := []struct {
		name string
		id   int
		want []Tab
	}{
		{
			name: "removes matching tab",
			id:   2,
			want: []Tab{{ID: TabID(1)}, {ID: TabID(3)}},
		},
		{
			name: "missing id is a no-op",
			id:   9,
			want: []Tab{{ID: TabID(1)}, {ID: TabID(2)}, {ID: TabID(3)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithoutTab(tabs, tt.id)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("WithoutTab(%d) mismatch (-want +got):\n%s", tt.id, diff)
			}
		})
	}

	if len(tabs) != 3 {
		t.Errorf("input slice changed length to %d", len(tabs))
	}
}

// TestTabJSON verifies the wire field names match the extension's format.
func TestTabJSON(t *testing.T) {
	tab := Tab{ID: TabID(7), Title: "Docs", URL: "https://go.dev", Pinned: true, FavIconURL: "https://go.dev/favicon.ico"}

	data, err := json.Marshal(tab)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"id":7,"title":"Docs","url":"https://go.dev","pinned":true,"favIconUrl":"https://go.dev/favicon.ico"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"free", "pro", "expired"} {
		if _, err := ParseTier(s); err != nil {
			t.Errorf("ParseTier(%q) error: %v", s, err)
		}
	}
	if _, err := ParseTier("gold"); err == nil {
		t.Error("ParseTier(gold) should fail")
	}
	if !TierExpired.Cloud() || !TierPro.Cloud() || TierFree.Cloud() {
		t.Error("Cloud() classification is wrong")
	}
}
