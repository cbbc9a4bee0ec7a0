package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// ResultsClient reads results the server stored in object storage.
type ResultsClient struct {
	client *Client
}

func resultPath(runID string) string {
	return apiPrefix + "/results/" + url.PathEscape(runID)
}

// List returns the stored run ids.
func (r *ResultsClient) List(ctx context.Context) ([]string, error) {
	var resp struct {
		Runs []string `json:"runs"`
	}
	if err := r.client.get(ctx, apiPrefix+"/results", &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Get fetches one stored result.
func (r *ResultsClient) Get(ctx context.Context, runID string) (*molecule.DecompositionResult, error) {
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	var result molecule.DecompositionResult
	if err := r.client.get(ctx, resultPath(runID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Matrix fetches the count matrix of a stored result as CSV.
func (r *ResultsClient) Matrix(ctx context.Context, runID string) ([]byte, error) {
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	resp, err := r.client.send(ctx, http.MethodGet, resultPath(runID)+"/matrix", nil, true)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// DownloadURL returns the presigned object URL the server redirects to.
func (r *ResultsClient) DownloadURL(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		return "", errors.InvalidParam("run id is required")
	}
	resp, err := r.client.send(ctx, http.MethodGet, resultPath(runID)+"/download", nil, false)
	if err != nil {
		return "", err
	}
	loc := resp.header.Get("Location")
	if loc == "" {
		return "", errors.Newf(errors.ErrCodeExternalService, "download of run %s returned no location (HTTP %d)", runID, resp.status)
	}
	return loc, nil
}

//Personal.AI order the ending
