package generator

import "strings"

const maxTitleKeywords = 5

// KeywordsForTitle tags a title with the categories it mentions plus any
// known company names, padding with generic keywords when little matched.
func (c *Catalog) KeywordsForTitle(title string) []string {
	lower := strings.ToLower(title)

	var matched []string
	for _, category := range c.KeywordCategories {
		for _, k := range category.Keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				matched = append(matched, category.Keywords[:min(2, len(category.Keywords))]...)
				break
			}
		}
	}

	for _, company := range c.Companies {
		if strings.Contains(title, company) {
			matched = append(matched, company)
		}
	}

	if len(matched) < 3 {
		matched = append(matched, c.GenericKeywords...)
	}

	keywords := uniqueStrings(matched)
	if len(keywords) > maxTitleKeywords {
		keywords = keywords[:maxTitleKeywords]
	}
	return keywords
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
