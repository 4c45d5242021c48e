// README: Config loader tests.
package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if cfg.Matching.OfferWindowSeconds != 10 {
		t.Fatalf("unexpected offer window %d", cfg.Matching.OfferWindowSeconds)
	}
	if cfg.Matching.PollIntervalSecs != 5 {
		t.Fatalf("unexpected poll interval %d", cfg.Matching.PollIntervalSecs)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIPMATCH_HTTP_ADDR", ":9999")
	t.Setenv("TRIPMATCH_OFFER_WINDOW_SECS", "30")
	t.Setenv("TRIPMATCH_POLL_INTERVAL_SECS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if cfg.Matching.OfferWindowSeconds != 30 {
		t.Fatalf("unexpected offer window %d", cfg.Matching.OfferWindowSeconds)
	}
	// Bad values fall back to the default.
	if cfg.Matching.PollIntervalSecs != 5 {
		t.Fatalf("unexpected poll interval %d", cfg.Matching.PollIntervalSecs)
	}
}
