package plugin

import "github.com/qepting91/plandit-scraper/internal/domain"

// SentimentTagger scores posts and comments with a small lexicon: the
// share of positive minus negative tokens, labeled with a neutral band.
type SentimentTagger struct{}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "awesome": {}, "amazing": {}, "love": {},
	"best": {}, "nice": {}, "happy": {}, "excellent": {}, "win": {},
	"beautiful": {}, "helpful": {}, "thanks": {}, "cool": {}, "fun": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "hate": {}, "worst": {},
	"sad": {}, "angry": {}, "broken": {}, "fail": {}, "problem": {},
	"ugly": {}, "wrong": {}, "annoying": {}, "scam": {}, "waste": {},
}

func (s *SentimentTagger) Name() string { return "sentiment_tagger" }

func (s *SentimentTagger) ProcessPosts(posts []domain.Post) ([]domain.Post, error) {
	for i := range posts {
		score, label := analyze(posts[i].Title + " " + posts[i].Selftext)
		posts[i].SentimentScore = score
		posts[i].SentimentLabel = label
	}
	return posts, nil
}

func (s *SentimentTagger) ProcessComments(comments []domain.Comment) ([]domain.Comment, error) {
	for i := range comments {
		score, label := analyze(comments[i].Body)
		comments[i].SentimentScore = score
		comments[i].SentimentLabel = label
	}
	return comments, nil
}

func analyze(text string) (float64, string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, "neutral"
	}

	var pos, neg int
	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
		} else if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	score := float64(pos-neg) / float64(len(tokens))
	switch {
	case score > 0.02:
		return score, "positive"
	case score < -0.02:
		return score, "negative"
	default:
		return score, "neutral"
	}
}
