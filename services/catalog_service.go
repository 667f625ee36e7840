package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github/itish2003/retrieval/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CatalogService serves the dataset/model catalog backing the UI selectors.
// The catalog lives in a JSON file next to the server and is hot-reloaded when
// the file changes, so new datasets show up without a restart. When the file
// is absent the built-in default catalog is used.
type CatalogService struct {
	path   string
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	catalog models.Catalog
}

func NewCatalogService(path string, logger *zap.SugaredLogger) *CatalogService {
	s := &CatalogService{
		path:    path,
		logger:  logger,
		catalog: defaultCatalog(),
	}
	s.Reload()
	return s
}

// Catalog returns the current catalog.
func (s *CatalogService) Catalog() models.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	catalog := s.catalog
	catalog.Datasets = append([]models.CatalogDataset(nil), s.catalog.Datasets...)
	catalog.Sizes = append([]string(nil), s.catalog.Sizes...)
	return catalog
}

// Reload re-reads the catalog file. A missing or unreadable file keeps the
// previous catalog in place.
func (s *CatalogService) Reload() {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnf("CATALOG: Could not read catalog file %s: %v", s.path, err)
		}
		return
	}

	var catalog models.Catalog
	if err := json.Unmarshal(content, &catalog); err != nil {
		s.logger.Warnf("CATALOG: Could not parse catalog file %s: %v", s.path, err)
		return
	}
	if catalog.MaxK <= 0 {
		catalog.MaxK = defaultCatalog().MaxK
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	s.logger.Infof("CATALOG: Loaded %d datasets from %s", len(catalog.Datasets), s.path)
}

// Watch starts a long-running process that reloads the catalog whenever its
// file changes. It blocks until the context is cancelled.
func (s *CatalogService) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Errorf("CATALOG: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(s.path) {
					continue
				}
				// Editors often write via a temp file and rename, so Create
				// and Write are handled the same.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					s.logger.Infof("CATALOG: Catalog file changed: %s. Reloading...", event.Name)
					s.Reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Errorf("CATALOG: Watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Watch the directory rather than the file itself so rename-style writes
	// keep being observed.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		s.logger.Errorf("CATALOG: Failed to watch %s: %v", dir, err)
		return
	}
	s.logger.Infof("CATALOG: Watching %s for catalog changes", dir)

	<-ctx.Done()
}

func defaultCatalog() models.Catalog {
	return models.Catalog{
		Datasets: []models.CatalogDataset{
			{ID: "Cars196", Name: "Cars196"},
			{ID: "CUB200", Name: "CUB-200-2011"},
			{ID: "SOP", Name: "Stanford Online Products"},
		},
		Sizes: []string{"s", "b", "l"},
		MaxK:  50,
	}
}
