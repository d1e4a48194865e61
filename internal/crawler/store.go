package crawler

import (
	"sync"

	"github.com/nao1215/llmsgen/internal/model"
)

// PageStore is the ordered sequence of recorded pages.
// Pages appear in the order their fetch succeeded.
type PageStore struct {
	mu    sync.Mutex
	pages []model.Page
	index map[string]int
}

// NewPageStore creates an empty store.
func NewPageStore() *PageStore {
	return &PageStore{
		pages: make([]model.Page, 0),
		index: make(map[string]int),
	}
}

// Add records p. It reports false and leaves the store unchanged if a page
// with the same URL was already recorded.
func (s *PageStore) Add(p model.Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[p.URL]; ok {
		return false
	}
	s.index[p.URL] = len(s.pages)
	s.pages = append(s.pages, p)
	return true
}

// Get returns the page recorded for pageURL.
func (s *PageStore) Get(pageURL string) (model.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[pageURL]
	if !ok {
		return model.Page{}, false
	}
	return s.pages[i], true
}

// Pages returns a copy of the recorded pages in crawl order.
func (s *PageStore) Pages() []model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// Len returns the number of recorded pages.
func (s *PageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
