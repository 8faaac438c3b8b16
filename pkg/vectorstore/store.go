package vectorstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Document is one embedded chunk stored in a collection.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Vector   []float64         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result pairs a stored document with its similarity to a query vector.
type Result struct {
	Document
	Similarity float64
}

type record struct {
	doc   Document
	order int
}

type collection struct {
	records []record
	byID    map[string]int
	nextOrd int
}

// Store keeps named collections of embedded documents, persisted as one
// JSONL file per collection under dir. Vectors are L2-normalized at upsert
// so queries reduce to dot products.
type Store struct {
	dir string

	mu          sync.RWMutex
	collections map[string]*collection
}

// Open loads any existing collection files under dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector store dir: %w", err)
	}

	s := &Store{dir: dir, collections: make(map[string]*collection)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading vector store dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		collName := strings.TrimSuffix(name, ".jsonl")
		if err := s.loadCollection(collName); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadCollection(name string) error {
	file, err := os.Open(s.path(name))
	if err != nil {
		return fmt.Errorf("opening collection %s: %w", name, err)
	}
	defer file.Close()

	coll := &collection{byID: make(map[string]int)}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return fmt.Errorf("parsing collection %s: %w", name, err)
		}
		coll.upsert(doc)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning collection %s: %w", name, err)
	}

	s.collections[name] = coll
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".jsonl")
}

// Upsert inserts or replaces documents by ID and persists the collection.
// Vectors are normalized in place; zero vectors are rejected.
func (s *Store) Upsert(ctx context.Context, name string, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{byID: make(map[string]int)}
		s.collections[name] = coll
	}

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document in collection %s has empty id", name)
		}
		normalized, err := normalize(doc.Vector)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		doc.Vector = normalized
		coll.upsert(doc)
	}

	return s.persist(name, coll)
}

func (c *collection) upsert(doc Document) {
	if idx, exists := c.byID[doc.ID]; exists {
		// Replacement keeps the original insertion order.
		c.records[idx].doc = doc
		return
	}
	c.byID[doc.ID] = len(c.records)
	c.records = append(c.records, record{doc: doc, order: c.nextOrd})
	c.nextOrd++
}

// Clear removes all documents from the collection and deletes its file.
func (s *Store) Clear(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing collection %s: %w", name, err)
	}
	return nil
}

// Count returns the number of documents stored in the collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return 0
	}
	return len(coll.records)
}

// Query returns up to k documents ranked by cosine similarity, most similar
// first. Filters are exact-match constraints on metadata applied before
// ranking; results below minSimilarity are dropped. Ties preserve insertion
// order.
func (s *Store) Query(ctx context.Context, name string, vector []float64, k int, minSimilarity float64, filters map[string]string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	query, err := normalize(vector)
	if err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, nil
	}

	results := make([]Result, 0, len(coll.records))
	for _, rec := range coll.records {
		if !matchesFilters(rec.doc.Metadata, filters) {
			continue
		}
		if len(rec.doc.Vector) != len(query) {
			return nil, fmt.Errorf("collection %s: dimension mismatch (%d vs %d)", name, len(rec.doc.Vector), len(query))
		}
		sim := dot(query, rec.doc.Vector)
		if sim < minSimilarity {
			continue
		}
		results = append(results, Result{Document: rec.doc, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Store) persist(name string, coll *collection) error {
	tmp := s.path(name) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing collection %s: %w", name, err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, rec := range coll.records {
		if err := encoder.Encode(rec.doc); err != nil {
			file.Close()
			return fmt.Errorf("encoding collection %s: %w", name, err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flushing collection %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing collection %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return fmt.Errorf("replacing collection %s: %w", name, err)
	}
	return nil
}

func matchesFilters(metadata, filters map[string]string) bool {
	for key, want := range filters {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func normalize(vector []float64) ([]float64, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	var sum float64
	for _, v := range vector {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("zero vector")
	}
	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = v / norm
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
