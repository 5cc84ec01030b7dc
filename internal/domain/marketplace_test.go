package domain

import "testing"

func TestGetMarketplacesOrder(t *testing.T) {
	got := GetMarketplaces()
	want := []string{MarketplaceShopee, MarketplaceLazada, MarketplaceTikTok, MarketplaceTemu}
	if len(got) != len(want) {
		t.Fatalf("got %d marketplaces, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("marketplace[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestMarketplaceMatches(t *testing.T) {
	lazada, _ := GetMarketplace(MarketplaceLazada)

	tests := []struct {
		name   string
		host   string
		rawURL string
		want   bool
	}{
		{"hostname keyword", "www.lazada.sg", "https://www.lazada.sg/p/1", true},
		{"raw url keyword", "redirect.example.com", "https://redirect.example.com/?to=lazada.com.ph/p", true},
		{"no match", "example.com", "https://example.com/p", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lazada.Matches(tt.host, tt.rawURL); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.host, tt.rawURL, got, tt.want)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Gaming Laptops", "gaming-laptops"},
		{"  Desk   Mats ", "desk-mats"},
		{"Guide", "guide"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMediaTypeConstraintSQL(t *testing.T) {
	want := "CHECK (type IN ('image', 'video', 'thumbnail'))"
	if got := GetMediaTypeConstraintSQL(); got != want {
		t.Errorf("GetMediaTypeConstraintSQL() = %q, want %q", got, want)
	}
	if MediaType("audio").IsValid() {
		t.Error("audio should not be a valid media type")
	}
}
