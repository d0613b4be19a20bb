package strains

// TerpeneInfo is the static reference card for one terpene.
type TerpeneInfo struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Effects     []string `json:"effects"`
	Aroma       string   `json:"aroma"`
	AlsoFoundIn []string `json:"also_found_in"`
}

// terpeneCatalog is served in this order by GET /api/terpenes.
var terpeneCatalog = []TerpeneInfo{
	{
		Key:         "myrcene",
		Name:        "β-Myrcene",
		Description: "The most common terpene in cannabis, known for its earthy, musky aroma with hints of cloves.",
		Effects:     []string{"Relaxing", "Sedating", "Muscle relaxant"},
		Aroma:       "Earthy, musky, herbal",
		AlsoFoundIn: []string{"Hops", "Lemongrass", "Thyme", "Mango"},
	},
	{
		Key:         "limonene",
		Name:        "D-Limonene",
		Description: "Second most common terpene with a distinctive citrus aroma. Associated with mood elevation.",
		Effects:     []string{"Uplifting", "Stress relief", "Mood enhancement"},
		Aroma:       "Citrus, lemon, orange",
		AlsoFoundIn: []string{"Citrus peels", "Juniper", "Peppermint"},
	},
	{
		Key:         "caryophyllene",
		Name:        "β-Caryophyllene",
		Description: "Unique terpene that also acts as a cannabinoid, binding to CB2 receptors. Spicy and peppery.",
		Effects:     []string{"Anti-inflammatory", "Pain relief", "Stress reduction"},
		Aroma:       "Spicy, peppery, woody",
		AlsoFoundIn: []string{"Black pepper", "Cloves", "Cinnamon", "Basil"},
	},
	{
		Key:         "pinene",
		Name:        "α-Pinene / β-Pinene",
		Description: "Sharp, pine-like terpene associated with alertness and memory retention.",
		Effects:     []string{"Alertness", "Memory retention", "Bronchodilator"},
		Aroma:       "Pine, sharp, fresh",
		AlsoFoundIn: []string{"Pine needles", "Rosemary", "Basil", "Dill"},
	},
	{
		Key:         "terpinolene",
		Name:        "Terpinolene",
		Description: "Complex, multi-dimensional terpene with floral, herbal, and citrus notes.",
		Effects:     []string{"Sedating", "Antioxidant", "Antibacterial"},
		Aroma:       "Floral, herbal, piney, citrus",
		AlsoFoundIn: []string{"Nutmeg", "Tea tree", "Cumin", "Lilacs"},
	},
	{
		Key:         "humulene",
		Name:        "α-Humulene",
		Description: "Earthy, woody terpene found in hops. Appetite suppressant properties.",
		Effects:     []string{"Anti-inflammatory", "Appetite suppressant", "Pain relief"},
		Aroma:       "Earthy, woody, spicy",
		AlsoFoundIn: []string{"Hops", "Coriander", "Cloves", "Basil"},
	},
	{
		Key:         "linalool",
		Name:        "Linalool",
		Description: "Floral, lavender-like terpene known for calming and sedative effects.",
		Effects:     []string{"Calming", "Sedative", "Anti-anxiety"},
		Aroma:       "Floral, lavender, sweet",
		AlsoFoundIn: []string{"Lavender", "Mint", "Cinnamon", "Coriander"},
	},
	{
		Key:         "ocimene",
		Name:        "β-Ocimene",
		Description: "Sweet, herbaceous, and woody terpene with potential anti-inflammatory properties.",
		Effects:     []string{"Uplifting", "Anti-inflammatory", "Antifungal"},
		Aroma:       "Sweet, herbal, woody, citrus",
		AlsoFoundIn: []string{"Mint", "Orchids", "Basil", "Pepper"},
	},
}

func lookupTerpene(key string) (TerpeneInfo, bool) {
	for _, t := range terpeneCatalog {
		if t.Key == key {
			return t, true
		}
	}
	return TerpeneInfo{}, false
}
