package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// DefaultMatchCount is the number of results a query returns by default.
const DefaultMatchCount = 3

// DefaultFileName is the store file used when no path is given.
const DefaultFileName = "text_index.json"

// Document is one indexed page. Documents are never modified after they
// are added.
type Document struct {
	// Vector is the term list of Title + ". " + Summary.
	Vector []string `json:"vector"`

	// Summary is the text the document was indexed with.
	Summary string `json:"summary"`

	// Title is the page title.
	Title string `json:"title"`

	// Link is the page URL.
	Link string `json:"link"`
}

// Result is the persisted store and the shape of query responses.
type Result struct {
	Items []Document `json:"items"`
}

// Index is an ordered, persistent document store.
//
// Design decision: A sync.RWMutex guards the documents because the crawl
// adds documents from the consumer goroutine while queries may run at the
// same time. Queries only read and can proceed in parallel.
type Index struct {
	path string

	mu   sync.RWMutex
	docs []Document
}

// New creates an empty index that saves to path. Nothing is read or
// written until Save is called.
func New(path string) *Index {
	if path == "" {
		path = DefaultFileName
	}
	return &Index{
		path: path,
		docs: make([]Document, 0),
	}
}

// Open loads the index stored at path. A missing file is not an error: the
// index starts empty and the empty store is written immediately.
func Open(path string) (*Index, error) {
	idx := New(path)

	data, err := os.ReadFile(idx.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := idx.Save(); err != nil {
			return nil, err
		}
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", idx.path, err)
	}

	var stored Result
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse index %s: %w", idx.path, err)
	}
	if stored.Items != nil {
		idx.docs = stored.Items
	}

	return idx, nil
}

// Path returns the file the index is saved to.
func (idx *Index) Path() string {
	return idx.path
}

// IndexDocument adds a document built from summary, title and link and
// returns it. Adding the same page twice stores it twice.
func (idx *Index) IndexDocument(summary, title, link string) Document {
	doc := Document{
		Vector:  Vectorize(title + ". " + summary),
		Summary: summary,
		Title:   title,
		Link:    link,
	}

	idx.mu.Lock()
	idx.docs = append(idx.docs, doc)
	idx.mu.Unlock()

	return doc
}

// Len returns the number of stored documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// match is a document with its score for one query.
type match struct {
	doc   Document
	score int
}

// Query scores every document against text and returns the matching ones,
// best first. A document's score is the sum, over the query terms, of how
// often each term occurs in the document vector; repeated query terms count
// repeatedly. Documents scoring zero are left out and ties keep insertion
// order. matchCount > 0 limits the number of results; otherwise all matches
// are returned.
func (idx *Index) Query(text string, matchCount int) []Document {
	terms := Vectorize(text)

	idx.mu.RLock()
	matches := make([]match, 0, len(idx.docs))
	for _, doc := range idx.docs {
		if score := scoreDocument(doc.Vector, terms); score > 0 {
			matches = append(matches, match{doc: doc, score: score})
		}
	}
	idx.mu.RUnlock()

	slices.SortStableFunc(matches, func(a, b match) int {
		return b.score - a.score
	})

	if matchCount > 0 && len(matches) > matchCount {
		matches = matches[:matchCount]
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.doc)
	}
	return docs
}

// Search is Query wrapped in a Result, ready to be serialized.
func (idx *Index) Search(text string, matchCount int) *Result {
	return &Result{Items: idx.Query(text, matchCount)}
}

// scoreDocument counts occurrences of each query term in vector.
func scoreDocument(vector, terms []string) int {
	counts := make(map[string]int, len(vector))
	for _, term := range vector {
		counts[term]++
	}

	score := 0
	for _, term := range terms {
		score += counts[term]
	}
	return score
}

// Save writes the whole store to the index path. The file is replaced
// atomically: data goes to a temporary file in the same directory, which is
// then renamed over the old one.
func (idx *Index) Save() error {
	idx.mu.RLock()
	data, err := json.Marshal(Result{Items: idx.docs})
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(idx.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmpName, idx.path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to replace index %s: %w", idx.path, err)
	}

	return nil
}
