package client

import (
	"context"

	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// FragmentsClient calls the decomposition endpoints.
type FragmentsClient struct {
	client *Client
}

// Decompose decomposes a batch.  Molecules that fail are reported in the
// result, not as an error.
func (f *FragmentsClient) Decompose(ctx context.Context, req *molecule.DecomposeRequest) (*molecule.DecomposeResponse, error) {
	var resp molecule.DecomposeResponse
	if err := f.client.post(ctx, apiPrefix+"/fragments/decompose", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Count decomposes a single structure.
func (f *FragmentsClient) Count(ctx context.Context, req *molecule.CountRequest) (*molecule.CountResponse, error) {
	var resp molecule.CountResponse
	if err := f.client.post(ctx, apiPrefix+"/fragments/count", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

//Personal.AI order the ending
