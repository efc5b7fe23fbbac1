package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HOST", "FUZZY_THRESHOLD", "ALLOW_ORIGINS", "KEYWORDS_FILE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr() != "127.0.0.1:8082" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.FuzzyThreshold != 0.85 || cfg.ForecastPrice != "1.50" {
		t.Errorf("threshold/forecast = %v/%q", cfg.FuzzyThreshold, cfg.ForecastPrice)
	}
	if !reflect.DeepEqual(cfg.AllowOrigins, []string{"*"}) {
		t.Errorf("origins = %v", cfg.AllowOrigins)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FUZZY_THRESHOLD", "0.9")
	t.Setenv("ALLOW_ORIGINS", "http://a,http://b")
	cfg := Load()
	if cfg.Port != 9000 || cfg.FuzzyThreshold != 0.9 || len(cfg.AllowOrigins) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	t.Setenv("FUZZY_THRESHOLD", "7")
	if cfg := Load(); cfg.FuzzyThreshold != 0.85 {
		t.Fatalf("out of range threshold kept: %v", cfg.FuzzyThreshold)
	}
}

func TestLoadKeywordsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.toml")
	doc := `
remark = ["note"]

[price]
orderable = ["contract"]

[[file_rank]]
keyword = "signed"
score = 5
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	kw, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords: %v", err)
	}
	def := DefaultKeywords()
	if !reflect.DeepEqual(kw.Remark, []string{"note"}) {
		t.Errorf("remark = %v", kw.Remark)
	}
	if !reflect.DeepEqual(kw.Price.Orderable, []string{"contract"}) || !reflect.DeepEqual(kw.Price.Ranked, def.Price.Ranked) {
		t.Errorf("price = %+v", kw.Price)
	}
	found := false
	for _, r := range kw.FileRank {
		found = found || r == (FileRank{Keyword: "signed", Score: 5})
	}
	if !found {
		t.Errorf("file_rank = %v", kw.FileRank)
	}
	if !reflect.DeepEqual(kw.Spec, def.Spec) {
		t.Errorf("spec table changed: %+v", kw.Spec)
	}
}

func TestLoadKeywordsErrors(t *testing.T) {
	kw, err := LoadKeywords("")
	if err != nil || !reflect.DeepEqual(kw, DefaultKeywords()) {
		t.Fatalf("empty path = %v", err)
	}
	if _, err := LoadKeywords(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing file accepted")
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	_ = os.WriteFile(bad, []byte("remark = [unclosed"), 0o644)
	if _, err := LoadKeywords(bad); err == nil {
		t.Error("malformed file accepted")
	}
}

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	SetupLogger(Config{LogLevel: "DEBUG", LogFormat: "json", LogFile: "-"})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %v", zerolog.GlobalLevel())
	}
	SetupLogger(Config{LogLevel: "loud", LogFile: "-"})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("bad level fell back to %v", zerolog.GlobalLevel())
	}

	path := filepath.Join(t.TempDir(), "nested", "svc.log")
	logger := SetupLogger(Config{LogLevel: "info", LogFile: path})
	logger.Info().Msg("hello")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not written: %v", err)
	}
}
