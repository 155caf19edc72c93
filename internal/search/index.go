// Package search maintains a full-text index of published articles.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// SearchIndex wraps a Bleve index with article operations.
//
// All public methods are safe for concurrent use; Rebuild takes the
// exclusive lock.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	// DataPath is the directory holding the index. Empty keeps it in memory.
	DataPath string
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever the mapping changes; a mismatch on
// startup discards the on-disk index.
const mappingVersion = "1"

// NewSearchIndex opens or creates the index.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "articles.bleve")
	versionPath := filepath.Join(opts.DataPath, "articles.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr == nil && string(version) == mappingVersion {
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
			}
		} else {
			logger.Info("search index mapping changed, will rebuild",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Sync brings the index in line with a, indexing it when published and
// removing it otherwise.
func (s *SearchIndex) Sync(a *domain.Article) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !a.Published {
		return s.index.Delete(DocumentID(a.ID))
	}
	doc := NewArticleDocument(a)
	return s.index.Index(doc.ID, doc.ToMap())
}

// Delete removes an article from the index.
func (s *SearchIndex) Delete(id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocumentID(id))
}

// DocumentCount returns the number of indexed articles.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index contents with the published subset of articles.
func (s *SearchIndex) Rebuild(articles []*domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clear(); err != nil {
		return err
	}

	const batchSize = 500

	batch := s.index.NewBatch()
	indexed := 0
	for _, a := range articles {
		if !a.Published {
			continue
		}
		doc := NewArticleDocument(a)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
		indexed++
		if batch.Size() >= batchSize {
			if err := s.index.Batch(batch); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	s.logger.Info("rebuilt search index", "articles", indexed)
	return nil
}

// clear drops every document. Callers hold the write lock.
func (s *SearchIndex) clear() error {
	if s.path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create in-memory index: %w", err)
		}
		if err := s.index.Close(); err != nil {
			s.logger.Warn("failed to close old index", "error", err)
		}
		s.index = index
		return nil
	}

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	return nil
}
