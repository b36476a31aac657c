package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Dataset is a named collection of evaluation items.
type Dataset struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DatasetInput is the body of create and update calls.
type DatasetInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Item is one row of a dataset.
type Item struct {
	ID             string          `json:"id"`
	DatasetID      string          `json:"datasetId"`
	Input          json.RawMessage `json:"input"`
	ExpectedOutput json.RawMessage `json:"expectedOutput,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ListDatasets returns one page of datasets in the project.
func (c *Client) ListDatasets(ctx context.Context, projectID string, opts ListOptions) (*Page[Dataset], error) {
	var page Page[Dataset]
	if err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "datasets"), opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetDataset fetches a single dataset.
func (c *Client) GetDataset(ctx context.Context, projectID, datasetID string) (*Dataset, error) {
	var ds Dataset
	if err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "datasets", datasetID), nil, nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CreateDataset creates a dataset and returns it.
func (c *Client) CreateDataset(ctx context.Context, projectID string, in DatasetInput) (*Dataset, error) {
	var ds Dataset
	if err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "datasets"), nil, in, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// UpdateDataset patches name or description.
func (c *Client) UpdateDataset(ctx context.Context, projectID, datasetID string, in DatasetInput) (*Dataset, error) {
	var ds Dataset
	if err := c.do(ctx, http.MethodPatch, c.projectPath(projectID, "datasets", datasetID), nil, in, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// DeleteDataset removes a dataset and its items.
func (c *Client) DeleteDataset(ctx context.Context, projectID, datasetID string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath(projectID, "datasets", datasetID), nil, nil, nil)
}

// ListItems returns one page of items in a dataset.
func (c *Client) ListItems(ctx context.Context, projectID, datasetID string, opts ListOptions) (*Page[Item], error) {
	var page Page[Item]
	if err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "datasets", datasetID, "items"), opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
