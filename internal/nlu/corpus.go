package nlu

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"zus_chatbot/internal/config"
	"zus_chatbot/pkg"
)

// Example is one embedded reference phrase
type Example struct {
	Label     string
	Phrase    string
	Embedding []float64
}

// ReferenceCorpus holds labeled example embeddings. It is immutable after
// construction and safe for concurrent use.
type ReferenceCorpus struct {
	labels   []string
	examples []Example
}

// NewReferenceCorpus embeds every example phrase in a single batch call.
// Label order is kept and decides ties.
func NewReferenceCorpus(ctx context.Context, embedder embedding.Embedder, labels []config.LabelExamples) (*ReferenceCorpus, error) {
	corpus := &ReferenceCorpus{}

	var phrases []string
	for _, l := range labels {
		corpus.labels = append(corpus.labels, l.Label)
		for _, phrase := range l.Examples {
			corpus.examples = append(corpus.examples, Example{Label: l.Label, Phrase: phrase})
			phrases = append(phrases, phrase)
		}
	}
	if len(phrases) == 0 {
		return corpus, nil
	}

	vectors, err := embedder.EmbedStrings(ctx, phrases)
	if err != nil {
		return nil, fmt.Errorf("failed to embed reference examples: %w", err)
	}
	if len(vectors) != len(phrases) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d examples", len(vectors), len(phrases))
	}
	for i := range corpus.examples {
		corpus.examples[i].Embedding = vectors[i]
	}
	return corpus, nil
}

// Labels returns the labels in vote order
func (c *ReferenceCorpus) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Vote returns the label whose best example is most similar to vector.
// Ties go to the label listed first. ok is false when the corpus is empty.
func (c *ReferenceCorpus) Vote(vector []float64) (label string, score float64, ok bool) {
	best := make(map[string]float64, len(c.labels))
	seen := make(map[string]bool, len(c.labels))
	for _, ex := range c.examples {
		sim := pkg.Cosine(vector, ex.Embedding)
		if !seen[ex.Label] || sim > best[ex.Label] {
			best[ex.Label] = sim
			seen[ex.Label] = true
		}
	}

	for _, l := range c.labels {
		if !seen[l] {
			continue
		}
		if !ok || best[l] > score {
			label, score, ok = l, best[l], true
		}
	}
	return label, score, ok
}
