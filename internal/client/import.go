package client

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// ImportCSV posts one CSV chunk to the items import endpoint.
func (c *Client) ImportCSV(ctx context.Context, target core.ImportTarget, req core.ImportRequest) (*core.BulkImportResult, error) {
	var res core.BulkImportResult
	path := c.projectPath(target.ProjectID, "datasets", target.DatasetID, "items", "import-csv")
	if err := c.do(ctx, http.MethodPost, path, nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

var _ core.Transport = (*Client)(nil)
