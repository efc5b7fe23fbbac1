package config

// Keywords holds the header keyword tables the column classifier evaluates.
// Order inside every slice is significant: the first matching entry wins.
type Keywords struct {
	Part      PartKeywords      `toml:"part"`
	Price     PriceKeywords     `toml:"price"`
	Spec      SpecKeywords      `toml:"spec"`
	Quantity  QuantityKeywords  `toml:"quantity"`
	Remark    []string          `toml:"remark"`
	FileRank  []FileRank        `toml:"file_rank"`
	Variance  VarianceKeywords  `toml:"variance"`
	Highlight HighlightKeywords `toml:"highlight"`
}

type PartKeywords struct {
	Exact    []string `toml:"exact"`    // whole header equals
	Contains []string `toml:"contains"` // header contains
	Fallback []string `toml:"fallback"` // used only when nothing more specific exists
	Catalog  []string `toml:"catalog"`  // part number column of spec catalogs
}

type PriceKeywords struct {
	Ranked    []string `toml:"ranked"`    // price policy candidates
	Orderable []string `toml:"orderable"` // dominant boost
	Catalog   []string `toml:"catalog"`   // spec catalog price columns
	Quote     []string `toml:"quote"`     // quote price columns (alnum-folded header)
}

type SpecKeywords struct {
	Patterns []string `toml:"patterns"` // regexps, priority order
	Exclude  []string `toml:"exclude"`
	Quote    []string `toml:"quote"` // quote columns searched for the query spec
}

type QuantityKeywords struct {
	Volume []string `toml:"volume"`
	MOQ    []string `toml:"moq"`
}

type FileRank struct {
	Keyword string `toml:"keyword"`
	Score   int    `toml:"score"`
}

type VarianceKeywords struct {
	Price    []string `toml:"price"`
	Volume   []string `toml:"volume"`
	Variance []string `toml:"variance"`
	Remark   []string `toml:"remark"`
	Spec     []string `toml:"spec"`
	Part     []string `toml:"part"`
	BOMSheet []string `toml:"bom_sheet"`
	BOMStop  string   `toml:"bom_stop"`
	BOMHint  []string `toml:"bom_hint"`
}

type HighlightKeywords struct {
	QuotePrice []string `toml:"quote_price"`
	Skip       []string `toml:"skip"`
	Exclude    []string `toml:"exclude"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Part: PartKeywords{
			Exact:    []string{"p/n"},
			Contains: []string{"part number", "hp part", "part #", "part", "sku", "material", "component"},
			Fallback: []string{"item"},
			Catalog:  []string{"part number", "partnumber", "p/n", "part", "hppart#"},
		},
		Price: PriceKeywords{
			Ranked:    []string{"price", "cost", "pricing", "rate", "amount", "value", "unit cost", "orderable"},
			Orderable: []string{"orderable"},
			Catalog:   []string{"price", "cost", "pricing", "unit cost", "unit price", "orderable price"},
			Quote:     []string{"price", "cost", "pricing"},
		},
		Spec: SpecKeywords{
			Patterns: []string{`^specs$`, `^specifications$`, `^spec$`, `specs`, `specifications`, `spec`},
			Exclude:  []string{"item", "index", "id", "number"},
			Quote:    []string{"spec"},
		},
		Quantity: QuantityKeywords{
			Volume: []string{"volume"},
			MOQ:    []string{"moq", "volume", "qty", "quantity"},
		},
		Remark: []string{"remark", "comment"},
		FileRank: []FileRank{
			{Keyword: "final", Score: 3},
			{Keyword: "new", Score: 2},
			{Keyword: "initial", Score: 1},
		},
		Variance: VarianceKeywords{
			Price:    []string{"orderable", "price", "cost", "pricing"},
			Volume:   []string{"volume", "qty", "quantity", "moq"},
			Variance: []string{"variance", "delta"},
			Remark:   []string{"remark", "comment"},
			Spec:     []string{"spec", "specification"},
			Part:     []string{"hppart", "item", "module", "part no", "part number", "sku"},
			BOMSheet: []string{"doc kit", "sku", "summary", "for hp"},
			BOMStop:  "HP CM - ALL OS - BTO",
			BOMHint:  []string{"volume", "bom"},
		},
		Highlight: HighlightKeywords{
			QuotePrice: []string{"pricing", "price", "cost", "costs", "quote", "quoted"},
			Skip:       []string{"Item", "HPPart#", "Type", "Remark", "SPECs"},
			Exclude:    []string{"volume", "variance", "cost delta", "confidence"},
		},
	}
}
