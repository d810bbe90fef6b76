package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"carscout/utils"
)

func newTestClient(t *testing.T, baseURL string) *RenderAPIClient {
	t.Helper()
	c, err := NewRenderAPIClient("test-key", baseURL, 5*time.Second, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("NewRenderAPIClient: %v", err)
	}
	return c
}

func TestNewRenderAPIClientRequiresKey(t *testing.T) {
	_, err := NewRenderAPIClient("  ", "https://render.example/api/v1/", time.Second, utils.NewNopLogger())
	if err == nil {
		t.Fatal("expected an error for a blank API key")
	}
}

func TestFetchRawModeParams(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	body, err := c.Fetch(context.Background(), "https://www.leboncoin.fr/recherche?category=2", Options{
		Render:       false,
		ProxyCountry: "fr",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("body = %q", body)
	}

	tests := []struct{ key, want string }{
		{"api_key", "test-key"},
		{"url", "https://www.leboncoin.fr/recherche?category=2"},
		{"render_js", "false"},
		{"premium_proxy", "true"},
		{"country_code", "fr"},
	}
	for _, tt := range tests {
		if v := got.Get(tt.key); v != tt.want {
			t.Errorf("param %s = %q; want %q", tt.key, v, tt.want)
		}
	}
	for _, absent := range []string{"wait", "wait_for", "block_resources"} {
		if got.Has(absent) {
			t.Errorf("raw mode must not send %s", absent)
		}
	}
}

func TestFetchRenderedModeParams(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte("<html>rendered</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), "https://www.lacentrale.fr/listing", Options{
		Render:               true,
		WaitMs:               3000,
		WaitForSelector:      "div.searchCard",
		BlockedResourceTypes: []string{"image", "font"},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	tests := []struct{ key, want string }{
		{"render_js", "true"},
		{"wait", "3000"},
		{"wait_for", "div.searchCard"},
		{"block_resources", "true"},
	}
	for _, tt := range tests {
		if v := got.Get(tt.key); v != tt.want {
			t.Errorf("param %s = %q; want %q", tt.key, v, tt.want)
		}
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Fetch(context.Background(), "https://example.fr", Options{}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(t, srv.URL)
	if _, err := c.Fetch(ctx, "https://example.fr", Options{}); err == nil {
		t.Fatal("expected a context deadline error")
	}
}
