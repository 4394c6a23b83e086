package plugin

import (
	"sort"
	"strings"
	"unicode"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// KeywordExtractor tags each post with its most frequent non-stopword
// terms from title and body.
type KeywordExtractor struct {
	TopN int
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"i": {}, "if": {}, "in": {}, "is": {}, "it": {}, "its": {}, "just": {},
	"me": {}, "my": {}, "not": {}, "of": {}, "on": {}, "or": {}, "so": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"what": {}, "when": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

func (k *KeywordExtractor) Name() string { return "keyword_extractor" }

func (k *KeywordExtractor) ProcessPosts(posts []domain.Post) ([]domain.Post, error) {
	topN := k.TopN
	if topN <= 0 {
		topN = 5
	}

	for i := range posts {
		text := posts[i].Title + " " + posts[i].Selftext
		keywords := topKeywords(text, topN)
		posts[i].Keywords = strings.Join(keywords, ",")
	}
	return posts, nil
}

func (k *KeywordExtractor) ProcessComments(comments []domain.Comment) ([]domain.Comment, error) {
	return comments, nil
}

func topKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}

	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, kv{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.word)
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
