// Package datasets wraps the backend client with a read cache, optimistic
// mutations and the import workflow.
package datasets

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/dsimport/internal/client"
	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/history"
	"github.com/JonMunkholm/dsimport/internal/logging"
)

// Backend is the part of the REST client the service uses.
type Backend interface {
	core.Transport
	ListDatasets(ctx context.Context, projectID string, opts client.ListOptions) (*client.Page[client.Dataset], error)
	GetDataset(ctx context.Context, projectID, datasetID string) (*client.Dataset, error)
	UpdateDataset(ctx context.Context, projectID, datasetID string, in client.DatasetInput) (*client.Dataset, error)
	DeleteDataset(ctx context.Context, projectID, datasetID string) error
	ListItems(ctx context.Context, projectID, datasetID string, opts client.ListOptions) (*client.Page[client.Item], error)
}

// ImportDefaults fill the options a caller leaves at zero.
type ImportDefaults struct {
	MaxPayloadSize     int
	DelayBetweenChunks time.Duration
}

// Service is safe for concurrent use.
type Service struct {
	backend   Backend
	projectID string
	cache     *Cache
	history   history.Store
	limiter   *core.ImportLimiter
	importer  *core.Importer
	defaults  ImportDefaults
}

// Config assembles a Service. Cache, History and Limiter default to
// in-memory implementations when nil.
type Config struct {
	Backend   Backend
	ProjectID string
	Cache     *Cache
	History   history.Store
	Limiter   *core.ImportLimiter
	Importer  *core.Importer
	Defaults  ImportDefaults
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	s := &Service{
		backend:   cfg.Backend,
		projectID: cfg.ProjectID,
		cache:     cfg.Cache,
		history:   cfg.History,
		limiter:   cfg.Limiter,
		importer:  cfg.Importer,
		defaults:  cfg.Defaults,
	}
	if s.cache == nil {
		s.cache = NewCache(time.Minute)
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.limiter == nil {
		s.limiter = core.NewImportLimiter(0, 0)
	}
	if s.importer == nil {
		s.importer = core.NewImporter(cfg.Backend)
	}
	return s
}

// Limiter exposes the import limiter for shutdown draining and status.
func (s *Service) Limiter() *core.ImportLimiter {
	return s.limiter
}

// History returns the run store.
func (s *Service) History() history.Store {
	return s.history
}

// ListDatasets returns a page of datasets, served from cache when possible.
func (s *Service) ListDatasets(ctx context.Context, opts client.ListOptions) (*client.Page[client.Dataset], error) {
	key := datasetListKey(s.projectID, opts.Key())
	if v, ok := s.cache.Get(key); ok {
		return v.(*client.Page[client.Dataset]), nil
	}

	page, err := s.backend.ListDatasets(ctx, s.projectID, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, page)
	return page, nil
}

// GetDataset returns one dataset, served from cache when possible.
func (s *Service) GetDataset(ctx context.Context, datasetID string) (*client.Dataset, error) {
	key := datasetKey(datasetID)
	if v, ok := s.cache.Get(key); ok {
		return v.(*client.Dataset), nil
	}

	ds, err := s.backend.GetDataset(ctx, s.projectID, datasetID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, ds)
	return ds, nil
}

// ListItems returns a page of dataset items, served from cache when possible.
func (s *Service) ListItems(ctx context.Context, datasetID string, opts client.ListOptions) (*client.Page[client.Item], error) {
	key := itemsKey(datasetID, opts.Key())
	if v, ok := s.cache.Get(key); ok {
		return v.(*client.Page[client.Item]), nil
	}

	page, err := s.backend.ListItems(ctx, s.projectID, datasetID, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, page)
	return page, nil
}

// DeleteDataset removes the dataset from cached listings right away and
// restores them if the backend call fails.
func (s *Service) DeleteDataset(ctx context.Context, datasetID string) error {
	err := core.Optimistic(
		func() map[string]any { return s.cache.Snapshot(datasetListPrefix) },
		s.cache.Restore,
		func() {
			s.rewriteListings(func(ds client.Dataset) (client.Dataset, bool) {
				return ds, ds.ID != datasetID
			})
		},
		func() error { return s.backend.DeleteDataset(ctx, s.projectID, datasetID) },
	)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", datasetID, err)
	}

	s.cache.Delete(datasetKey(datasetID))
	s.cache.InvalidateItems(datasetID)
	return nil
}

// RenameDataset shows the new name in cached listings immediately and
// reverts if the backend rejects it.
func (s *Service) RenameDataset(ctx context.Context, datasetID, name string) (*client.Dataset, error) {
	var updated *client.Dataset
	err := core.Optimistic(
		func() map[string]any {
			snap := s.cache.Snapshot(datasetListPrefix)
			if v, ok := s.cache.Get(datasetKey(datasetID)); ok {
				snap[datasetKey(datasetID)] = v
			}
			return snap
		},
		func(snap map[string]any) {
			s.cache.Delete(datasetKey(datasetID))
			s.cache.Restore(snap)
		},
		func() {
			s.rewriteListings(func(ds client.Dataset) (client.Dataset, bool) {
				if ds.ID == datasetID {
					ds.Name = name
				}
				return ds, true
			})
			if v, ok := s.cache.Get(datasetKey(datasetID)); ok {
				ds := *v.(*client.Dataset)
				ds.Name = name
				s.cache.Set(datasetKey(datasetID), &ds)
			}
		},
		func() error {
			ds, err := s.backend.UpdateDataset(ctx, s.projectID, datasetID, client.DatasetInput{Name: name})
			updated = ds
			return err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("rename dataset %s: %w", datasetID, err)
	}
	s.cache.Set(datasetKey(datasetID), updated)
	return updated, nil
}

// rewriteListings replaces every cached dataset page with a copy passed
// through fn. fn returns false to drop a dataset.
func (s *Service) rewriteListings(fn func(client.Dataset) (client.Dataset, bool)) {
	for key, v := range s.cache.Snapshot(datasetListPrefix) {
		page, ok := v.(*client.Page[client.Dataset])
		if !ok {
			continue
		}
		next := &client.Page[client.Dataset]{
			Data:       make([]client.Dataset, 0, len(page.Data)),
			Pagination: page.Pagination,
		}
		for _, ds := range page.Data {
			if out, keep := fn(ds); keep {
				next.Data = append(next.Data, out)
			} else {
				next.Pagination.Total--
			}
		}
		s.cache.Set(key, next)
	}
}

// ImportRequest describes one import started by a user.
type ImportRequest struct {
	DatasetID string
	FileName  string
	Content   string
	Options   core.ImportOptions
}

// ImportCSV runs a chunked import into a dataset, records it in the history
// store and invalidates cached listings of the dataset. Only one import per
// dataset runs at a time.
func (s *Service) ImportCSV(ctx context.Context, req ImportRequest) (*core.ImportResult, error) {
	if err := s.limiter.Acquire(ctx, req.DatasetID); err != nil {
		return nil, err
	}
	defer s.limiter.Release(req.DatasetID)

	opts := req.Options
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = s.defaults.MaxPayloadSize
	}
	if opts.DelayBetweenChunks == 0 {
		opts.DelayBetweenChunks = s.defaults.DelayBetweenChunks
	}

	target := core.ImportTarget{ProjectID: s.projectID, DatasetID: req.DatasetID}
	logger := logging.WithFields(ctx, "dataset_id", req.DatasetID, "file", req.FileName)

	started := time.Now()
	res, err := s.importer.Import(ctx, target, req.Content, opts)
	if err != nil {
		return nil, err
	}
	finished := time.Now()

	run := history.NewRun(target, req.FileName, res, started, finished)
	if err := s.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to record import history", "error", err)
	}

	n := s.cache.InvalidateItems(req.DatasetID)
	s.cache.Delete(datasetKey(req.DatasetID))
	s.cache.InvalidatePrefix(datasetListPrefix)
	logger.Debug("invalidated cached listings", "entries", n)

	return res, nil
}

// Imports lists recorded runs for a dataset, newest first.
func (s *Service) Imports(ctx context.Context, datasetID string, limit int) ([]history.Run, error) {
	return s.history.List(ctx, datasetID, limit)
}
