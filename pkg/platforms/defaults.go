package platforms

// DefaultPlatforms is the built-in publisher set used when no platforms file
// is configured. configs/platforms.yaml mirrors it.
func DefaultPlatforms() []Platform {
	return []Platform{
		{
			ID:       "rmrb",
			Name:     "人民日报",
			Type:     TypeNumberedPages,
			BaseURL:  "https://paper.people.com.cn",
			Section:  "rmrb/pc",
			MaxPages: defaultNumberedMaxPages,
		},
		{
			ID:         "xuexishibao",
			Name:       "学习时报",
			Type:       TypeLinkPattern,
			BaseURL:    "https://paper.studytimes.cn",
			Section:    "cntheory",
			UpdateDays: []string{"mon", "wed", "fri"},
		},
		{
			ID:        "guangming",
			Name:      "光明日报",
			Type:      TypeIndexLinks,
			BaseURL:   "https://epaper.gmw.cn",
			PaperCode: "gmrb",
		},
		{
			ID:      "xinhua_daily",
			Name:    "新华每日电讯",
			Type:    TypeFlatImages,
			BaseURL: "http://mrdx.cn",
		},
		{
			ID:        "zhonghuadushu",
			Name:      "中华读书报",
			Type:      TypeIndexLinks,
			BaseURL:   "https://epaper.gmw.cn",
			PaperCode: "zhdsb",
		},
		{
			ID:        "wenzhai",
			Name:      "文摘报",
			Type:      TypeIndexLinks,
			BaseURL:   "https://epaper.gmw.cn",
			PaperCode: "wzb",
			Config:    map[string]any{ConfigFallbackImageScanKey: true},
		},
	}
}
