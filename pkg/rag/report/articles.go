package report

import (
	"regexp"
	"strings"
)

// "Article 5", "Article 5(1)(d)", "article 52a", "Art. 99"
var articleRefRe = regexp.MustCompile(`(?i)\b(?:articles?|art\.)[ \t]*(\d+[a-z]?(?:\([ \t]*[0-9a-z]{1,4}[ \t]*\))*)`)

// ExtractArticleRefs returns every article reference in text, normalised to
// "Article N..." and deduplicated in first-seen order.
func ExtractArticleRefs(text string) []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, m := range articleRefRe.FindAllStringSubmatch(text, -1) {
		ref := "Article " + strings.ToLower(strings.Join(strings.Fields(m[1]), ""))
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
