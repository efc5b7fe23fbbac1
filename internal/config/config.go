package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"
)

type Config struct {
	Host           string
	Port           int
	AllowOrigins   []string
	LogLevel       string
	LogFormat      string // console | json
	MaxUploadMB    int
	LogFile        string
	SpecsDir       string  // folder with spec pricing workbooks
	PriceRoot      string  // root/Supplier/ODM/DateFolder tree
	ForecastPrice  string  // NB-F stand-in price
	FuzzyThreshold float64 // strict lower bound for fuzzy acceptance in the append path
	KeywordsFile   string
	Keywords       Keywords
}

func Load() Config {
	port, _ := strconv.Atoi(getenv("PORT", "8082"))
	mb, _ := strconv.Atoi(getenv("MAX_UPLOAD_MB", "256"))
	thr, err := strconv.ParseFloat(getenv("FUZZY_THRESHOLD", "0.85"), 64)
	if err != nil || thr <= 0 || thr > 1 {
		thr = 0.85
	}
	origins := strings.Split(getenv("ALLOW_ORIGINS", "*"), ",")
	cfg := Config{
		Host:           getenv("HOST", "127.0.0.1"),
		Port:           port,
		AllowOrigins:   origins,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "console"),
		MaxUploadMB:    mb,
		LogFile:        getenv("LOG_FILE", "logs/cost-recon.log"),
		SpecsDir:       getenv("SPECS_DIR", "SPEC PRICING FILES"),
		PriceRoot:      getenv("PRICE_ROOT", "pricing"),
		ForecastPrice:  getenv("FORECAST_PRICE", "1.50"),
		FuzzyThreshold: thr,
		KeywordsFile:   os.Getenv("KEYWORDS_FILE"),
		Keywords:       DefaultKeywords(),
	}
	return cfg
}

// LoadKeywords overlays the TOML file at path onto the default keyword tables.
// Tables missing from the file keep their defaults.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return kw, eris.Wrapf(err, "read keywords file %s", path)
	}
	if err := toml.Unmarshal(b, &kw); err != nil {
		return DefaultKeywords(), eris.Wrapf(err, "parse keywords file %s", path)
	}
	return kw, nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
