package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

type explodingPlugin struct{ panics bool }

func (e *explodingPlugin) Name() string { return "exploding" }

func (e *explodingPlugin) ProcessPosts(posts []domain.Post) ([]domain.Post, error) {
	if e.panics {
		panic("boom")
	}
	return nil, errors.New("refused")
}

func (e *explodingPlugin) ProcessComments(comments []domain.Comment) ([]domain.Comment, error) {
	return comments, nil
}

func somePosts() []domain.Post {
	return []domain.Post{
		{ID: "a", Permalink: "/a", Title: "Great news about Go generics", Selftext: "generics generics tooling"},
		{ID: "b", Permalink: "/b", Title: "This is terrible and broken"},
		{ID: "a2", Permalink: "/a", Title: "duplicate of a"},
	}
}

func TestChainFailurePassesBatchThrough(t *testing.T) {
	posts := somePosts()

	got, comments := (&Chain{plugins: []Plugin{&explodingPlugin{}}}).Run(posts, nil)
	assert.Equal(t, posts, got, "a failing plugin must not alter the batch")
	assert.Nil(t, comments)
}

func TestChainPanicPassesBatchThrough(t *testing.T) {
	posts := somePosts()

	got, _ := (&Chain{plugins: []Plugin{&explodingPlugin{panics: true}}}).Run(posts, nil)
	assert.Equal(t, posts, got)
}

func TestChainContinuesAfterFailure(t *testing.T) {
	chain := &Chain{plugins: []Plugin{&explodingPlugin{}, &Deduplicator{}}}

	got, _ := chain.Run(somePosts(), nil)
	assert.Len(t, got, 2, "later stages still run after a failed one")
}

func TestNewChainRejectsUnknown(t *testing.T) {
	_, err := NewChain([]string{"deduplicator", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestNewChainResolvesRegistry(t *testing.T) {
	chain, err := NewChain([]string{"deduplicator", "keyword_extractor", "sentiment_tagger"})
	require.NoError(t, err)
	assert.Equal(t, 3, chain.Len())
}

func TestDeduplicatorPosts(t *testing.T) {
	got, err := (&Deduplicator{}).ProcessPosts(somePosts())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "first occurrence wins")
	assert.Equal(t, "b", got[1].ID)
}

func TestDeduplicatorComments(t *testing.T) {
	comments := []domain.Comment{{ID: "c1"}, {ID: "c1"}, {ID: "c2"}, {ID: ""}}
	got, err := (&Deduplicator{}).ProcessComments(comments)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestKeywordExtractor(t *testing.T) {
	posts := []domain.Post{{
		Title:    "Generics in Go",
		Selftext: "generics make the code reusable, the generics proposal landed",
	}}

	got, err := (&KeywordExtractor{TopN: 2}).ProcessPosts(posts)
	require.NoError(t, err)
	assert.Contains(t, got[0].Keywords, "generics")
	assert.NotContains(t, got[0].Keywords, "the", "stopwords never rank")
}

func TestSentimentTagger(t *testing.T) {
	posts := []domain.Post{
		{Title: "This is great, awesome and amazing"},
		{Title: "Terrible awful broken mess"},
		{Title: "The quarterly report has shipped"},
	}

	got, err := (&SentimentTagger{}).ProcessPosts(posts)
	require.NoError(t, err)
	assert.Equal(t, "positive", got[0].SentimentLabel)
	assert.Equal(t, "negative", got[1].SentimentLabel)
	assert.Equal(t, "neutral", got[2].SentimentLabel)
}
