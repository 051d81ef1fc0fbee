package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleYAML = `
schedule: "0 */4 * * *"
timezone: America/Sao_Paulo
search:
  window_start: "2025-05-01"
  window_end: "2025-05-31"
  trip_days: 11
  threshold: 700
routes:
  - {origin: GIG, destination: SSA, name: Salvador}
  - {origin: GIG, destination: REC, name: Recife}
  - {origin: GIG, destination: MCZ, name: Maceió}
`

func TestDecodeYAMLAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Decode("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	s := cfg.Search
	if s.Strategy != StrategyJoint || cfg.Notify.Mode != NotifyPerOffer {
		t.Fatalf("unexpected modes: %q %q", s.Strategy, cfg.Notify.Mode)
	}
	if !s.Threshold.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("threshold = %s", s.Threshold)
	}
	if s.Currency != "BRL" || s.CurrencySymbol != "R$" || s.LanguageCode != "pt-BR" || s.CountryCode != "BR" {
		t.Fatalf("unexpected locale defaults: %+v", s)
	}
	if s.TravelClass != "ECONOMY" || s.Adults != 1 || !Enabled(s.ShowHidden, false) || !Enabled(s.FollowReturnLeg, false) {
		t.Fatalf("unexpected passenger defaults: %+v", s)
	}
	if s.WindowDays != 0 {
		t.Fatalf("absolute window must not get relative defaults, got %d days", s.WindowDays)
	}
	if len(cfg.Routes) != 3 || cfg.Routes[2].Name != "Maceió" {
		t.Fatalf("unexpected routes: %+v", cfg.Routes)
	}
}

func TestDecodeYAMLUnquotedDates(t *testing.T) {
	t.Parallel()
	body := strings.NewReplacer(`"2025-05-01"`, "2025-05-01", `"2025-05-31"`, "2025-05-31").Replace(sampleYAML)
	cfg, err := Decode("config.yaml", []byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Search.WindowStart != "2025-05-01" || cfg.Search.WindowEnd != "2025-05-31" {
		t.Fatalf("window = %q..%q", cfg.Search.WindowStart, cfg.Search.WindowEnd)
	}
}

func TestDecodeJSONStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"schedule":"1h","bogus":true}`},
		{"trailing data", `{"schedule":"1h"}{"schedule":"2h"}`},
		{"wrong type", `{"search":{"trip_days":"eleven"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode("config.json", []byte(tt.body)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestDefaultsRelativeWindow(t *testing.T) {
	t.Parallel()
	cfg := &Config{Routes: []RouteConfig{{Origin: "GIG", Destination: "SSA"}}}
	ApplyDefaults(cfg)
	if cfg.Search.WindowOffsetDays != 1 || cfg.Search.WindowDays != 30 {
		t.Fatalf("unexpected relative window: %+v", cfg.Search)
	}
	if cfg.Schedule != "0 */4 * * *" || cfg.Search.TripDays != 11 {
		t.Fatalf("unexpected defaults: %q %d", cfg.Schedule, cfg.Search.TripDays)
	}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	paired := &Config{Search: SearchConfig{Strategy: "PAIRED_LEGS"}}
	ApplyDefaults(paired)
	if paired.Search.Strategy != StrategyPairedLegs || paired.Search.TripDays != 12 {
		t.Fatalf("unexpected paired defaults: %+v", paired.Search)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		cfg := &Config{
			Search: SearchConfig{WindowStart: "2025-05-01", WindowEnd: "2025-05-31"},
			Routes: []RouteConfig{{Origin: "GIG", Destination: "SSA"}},
		}
		ApplyDefaults(cfg)
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no routes", func(c *Config) { c.Routes = nil }, "routes"},
		{"bad airport", func(c *Config) { c.Routes[0].Destination = "SALVADOR" }, "destination"},
		{"duplicate route", func(c *Config) { c.Routes = append(c.Routes, RouteConfig{Origin: "gig", Destination: "ssa"}) }, "duplicate"},
		{"end before start", func(c *Config) { c.Search.WindowEnd = "2025-04-01" }, "before"},
		{"bad date", func(c *Config) { c.Search.WindowStart = "01/05/2025" }, "window_start"},
		{"negative threshold", func(c *Config) { c.Search.Threshold = decimal.NewFromInt(-1) }, "threshold"},
		{"unknown strategy", func(c *Config) { c.Search.Strategy = "fastest" }, "strategy"},
		{"unknown mode", func(c *Config) { c.Notify.Mode = "digest" }, "notify.mode"},
		{"unknown policy", func(c *Config) { c.Search.Routing.Policy = "two_stop" }, "routing"},
		{"bad duration", func(c *Config) { c.Provider.Timeout = "soon" }, "provider.timeout"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad storage driver", func(c *Config) { c.Storage = &StorageConfig{Driver: "redis"} }, "storage.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateUsesScheduleCheck(t *testing.T) {
	t.Parallel()
	cfg := &Config{Routes: []RouteConfig{{Origin: "GIG", Destination: "SSA"}}}
	ApplyDefaults(cfg)
	boom := errors.New("bad cron")
	err := Validate(cfg, func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected schedule error, got %v", err)
	}
}

func TestSecretsFromEnv(t *testing.T) {
	t.Parallel()
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	s, err := SecretsFromEnv(env(map[string]string{
		EnvBotToken: "123:abc", EnvChatID: "-1001234", EnvAPIKey: " key ",
	}))
	if err != nil {
		t.Fatalf("SecretsFromEnv: %v", err)
	}
	if s.ChatID != -1001234 || s.APIKey != "key" || s.BotToken != "123:abc" {
		t.Fatalf("unexpected secrets: %+v", s)
	}

	_, err = SecretsFromEnv(env(map[string]string{EnvChatID: "@channel"}))
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	for _, want := range []string{EnvBotToken, EnvAPIKey, "invalid chat id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FAREWATCH_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAREWATCH_TEST_KEY", "")
	os.Unsetenv("FAREWATCH_TEST_KEY")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("FAREWATCH_TEST_KEY"); got != "from-file" {
		t.Fatalf("FAREWATCH_TEST_KEY = %q", got)
	}
}

func TestManagerLoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	m.SetValidator(func(_ context.Context, cfg *Config) error { return Validate(cfg, nil) })
	cfg, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := m.Subscribe(1)
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)

	// an invalid config is rejected and never published
	if err := os.WriteFile(path, []byte("routes: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * reloadDebounce)

	updated := strings.Replace(sampleYAML, "threshold: 700", "threshold: 650", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sub:
		if !got.Search.Threshold.Equal(decimal.NewFromInt(650)) {
			t.Fatalf("published threshold = %s", got.Search.Threshold)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if !m.Get().Search.Threshold.Equal(decimal.NewFromInt(650)) {
		t.Fatal("reload was not committed")
	}

	cancel()
	<-done
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := &Config{Schedule: "1h", Routes: []RouteConfig{{Origin: "GIG", Destination: "SSA"}}}
	b := &Config{Schedule: "2h", Routes: []RouteConfig{{Origin: "GIG", Destination: "REC"}}, Notify: NotifyConfig{Mode: NotifyBatched}}
	changed, _ := SummarizeChange(a, b)
	got := strings.Join(changed, ",")
	if got != "schedule,notify,routes" {
		t.Fatalf("changed = %q", got)
	}
	if changed, _ := SummarizeChange(a, a); len(changed) != 0 {
		t.Fatalf("expected no changes, got %v", changed)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "0s", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("zero should fall back to default, got %v, %v", d, err)
	}
	for _, raw := range []string{"-1s", "soon"} {
		_, err := ParseDurationOrDefault("provider.timeout", raw, time.Second)
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Path != "provider.timeout" || fe.Value != raw {
			t.Fatalf("ParseDurationOrDefault(%q): expected FieldError, got %v", raw, err)
		}
	}
}

func TestToJSON(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		file    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "json passthrough", file: "c.json", in: `{"a":1}`, want: `{"a":1}`},
		{name: "empty yaml", file: "c.yaml", in: "", want: `{}`},
		{name: "alias", file: "c.yml", in: "base: &b {origin: GIG}\nroute: *b\n", want: `{"base":{"origin":"GIG"},"route":{"origin":"GIG"}}`},
		{name: "sequence", file: "c.yaml", in: "routes: [SSA, REC]\n", want: `{"routes":["SSA","REC"]}`},
		{name: "unquoted date", file: "c.yaml", in: "window_start: 2025-05-01\n", want: `{"window_start":"2025-05-01"}`},
		{name: "unquoted datetime", file: "c.yaml", in: "at: 2025-05-01T10:00:00Z\n", want: `{"at":"2025-05-01T10:00:00Z"}`},
		{name: "complex key", file: "c.yaml", in: "? [a, b]\n: 1\n", wantErr: true},
		{name: "bad yaml", file: "c.yaml", in: "a: [1, 2\n", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, _, err := toJSON(tc.file, []byte(tc.in))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("toJSON: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
