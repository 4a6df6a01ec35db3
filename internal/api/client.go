package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zombor/receipt-scanner/internal/upload"
)

// Executor runs one GraphQL operation. *upload.Link satisfies it.
type Executor interface {
	Execute(ctx context.Context, op upload.Operation) (*upload.Response, error)
}

// Client calls the receipt GraphQL service
type Client struct {
	executor Executor
}

// NewClient creates a Client talking to the GraphQL endpoint of endpoints,
// sending headers with every request
func NewClient(endpoints Endpoints, headers http.Header) *Client {
	return NewClientWithExecutor(upload.NewLink(endpoints.GraphQL, headers))
}

// NewClientWithExecutor creates a Client with a custom executor for testing
func NewClientWithExecutor(executor Executor) *Client {
	return &Client{executor: executor}
}

// UploadReceipt sends a receipt image and returns the extracted record
func (c *Client) UploadReceipt(ctx context.Context, file upload.File) (*Receipt, error) {
	var data struct {
		UploadReceipt *Receipt `json:"uploadReceipt"`
	}
	err := c.do(ctx, upload.Operation{
		Query:         UploadReceiptMutation,
		OperationName: "UploadReceipt",
		Variables:     map[string]any{"file": file},
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("uploading receipt: %w", err)
	}
	if data.UploadReceipt == nil {
		return nil, fmt.Errorf("uploading receipt: empty response")
	}
	return data.UploadReceipt, nil
}

// Receipts lists receipts. A nil or empty filter lists everything.
func (c *Client) Receipts(ctx context.Context, filter *ReceiptFilter) ([]Receipt, error) {
	op := upload.Operation{
		Query:         ReceiptsQuery,
		OperationName: "GetReceipts",
	}
	if !filter.IsZero() {
		op.Query = FilteredReceiptsQuery
		op.Variables = map[string]any{"filter": filter}
	}

	var data struct {
		Receipts []Receipt `json:"receipts"`
	}
	if err := c.do(ctx, op, &data); err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	if data.Receipts == nil {
		data.Receipts = []Receipt{}
	}
	return data.Receipts, nil
}

// Receipt fetches a single receipt by ID
func (c *Client) Receipt(ctx context.Context, id string) (*Receipt, error) {
	var data struct {
		Receipt *Receipt `json:"receipt"`
	}
	err := c.do(ctx, upload.Operation{
		Query:         ReceiptQuery,
		OperationName: "GetReceipt",
		Variables:     map[string]any{"id": id},
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if data.Receipt == nil {
		return nil, fmt.Errorf("receipt not found: %s", id)
	}
	return data.Receipt, nil
}

func (c *Client) do(ctx context.Context, op upload.Operation, out any) error {
	resp, err := c.executor.Execute(ctx, op)
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return resp.Errors
	}
	if err := resp.UnmarshalData(out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}
