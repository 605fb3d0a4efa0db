package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Document is a single policy document in the corpus.
type Document struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Passage is a ranked policy excerpt returned by Search.
type Passage struct {
	DocumentID string
	Title      string
	Text       string
	Score      float64
}

// Corpus holds the loaded policy documents and serves ranked searches.
// It is safe for concurrent use; Reload swaps the document snapshot
// atomically under a write lock while searches proceed on the old snapshot.
type Corpus struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	docs   []Document
	tokens []map[string]int // Per-document term frequencies aligned with docs
}

// Load creates a corpus from all YAML documents under path.
// Files that fail to parse are skipped with a warning rather than failing
// the whole load; an empty corpus is valid (searches return nothing).
func Load(path string) (*Corpus, error) {
	c := &Corpus{
		path:   path,
		logger: slog.Default().With("component", "policy.corpus"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads all documents from the corpus directory and swaps the
// snapshot. On read failure the previous snapshot stays active.
func (c *Corpus) Reload() error {
	entries, err := os.ReadDir(c.path)
	if err != nil {
		return fmt.Errorf("failed to read corpus directory %q: %w", c.path, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.path, entry.Name()))
		if err != nil {
			c.logger.Warn("skipping unreadable policy document", "file", entry.Name(), "error", err)
			continue
		}

		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			c.logger.Warn("skipping malformed policy document", "file", entry.Name(), "error", err)
			continue
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(entry.Name(), ext)
		}
		docs = append(docs, doc)
	}

	// Deterministic document order regardless of directory iteration.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	tokens := make([]map[string]int, len(docs))
	for i, doc := range docs {
		tokens[i] = termFrequencies(doc.Title + " " + doc.Text)
	}

	c.mu.Lock()
	c.docs = docs
	c.tokens = tokens
	c.mu.Unlock()

	c.logger.Info("policy corpus loaded", "path", c.path, "documents", len(docs))
	return nil
}

// Size returns the number of loaded documents.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Search ranks documents by lexical overlap with the keywords and returns
// the topK passages. Ordering is stable: ties break by document ID, so
// identical inputs always return identical results.
func (c *Corpus) Search(keywords []string, topK int) []Passage {
	if topK <= 0 {
		return nil
	}

	query := termFrequencies(strings.Join(keywords, " "))
	if len(query) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	passages := make([]Passage, 0, len(c.docs))
	for i, doc := range c.docs {
		score := overlapScore(query, c.tokens[i])
		if score == 0 {
			continue
		}
		passages = append(passages, Passage{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Text:       doc.Text,
			Score:      score,
		})
	}

	sort.Slice(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].DocumentID < passages[j].DocumentID
	})

	if len(passages) > topK {
		passages = passages[:topK]
	}
	return passages
}

// stopwords excluded from overlap scoring.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"with": true,
}

// termFrequencies tokenizes text into lowercase word counts, dropping
// stopwords and single characters.
func termFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		freqs[w]++
	}
	return freqs
}

// overlapScore computes a normalized lexical overlap between query terms and
// a document's term frequencies.
func overlapScore(query, doc map[string]int) float64 {
	if len(doc) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if doc[term] > 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
