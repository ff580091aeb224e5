package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const workOrdersPath = "/workshop/work-orders"

func (c *Client) ListWorkOrders(ctx context.Context, opts ListOptions) (*Page[WorkOrderSummary], error) {
	return get[Page[WorkOrderSummary]](ctx, c, workOrdersPath, opts.values())
}

func (c *Client) GetWorkOrder(ctx context.Context, id string) (*WorkOrder, error) {
	return get[WorkOrder](ctx, c, pathf(workOrdersPath+"/%s", id), nil)
}

func (c *Client) CreateWorkOrder(ctx context.Context, in CreateWorkOrder) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodPost, workOrdersPath, in)
}

func (c *Client) UpdateWorkOrder(ctx context.Context, id string, in UpdateWorkOrder) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodPut, pathf(workOrdersPath+"/%s", id), in)
}

// ChangeStatus moves the order to status. A refused move fails with
// IsInvalidTransition.
func (c *Client) ChangeStatus(ctx context.Context, id string, status Status) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodPatch, pathf(workOrdersPath+"/%s/status", id),
		map[string]Status{"status": status})
}

func (c *Client) AddItem(ctx context.Context, id string, item ItemInput) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodPost, pathf(workOrdersPath+"/%s/items", id), item)
}

func (c *Client) RemoveItem(ctx context.Context, id, itemID string) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodDelete, pathf(workOrdersPath+"/%s/items/%s", id, itemID), nil)
}

// SaveChecklist replaces the intake checklist.
func (c *Client) SaveChecklist(ctx context.Context, id string, checklist Checklist) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodPut, pathf(workOrdersPath+"/%s/checklist", id), checklist)
}

// GenerateSale turns a ready order into a sale. A second call fails with
// IsSaleExists; use WithIdempotencyKey to make retries safe.
func (c *Client) GenerateSale(ctx context.Context, id string) (*GeneratedSale, error) {
	return call[GeneratedSale](ctx, c, http.MethodPost, pathf(workOrdersPath+"/%s/generate-sale", id), nil)
}

// Photo is one file to upload.
type Photo struct {
	Name string
	Body io.Reader
}

// UploadPhotos appends photos to the intake (PhaseIn) or delivery
// (PhaseOut) set of the order.
func (c *Client) UploadPhotos(ctx context.Context, id string, phase Phase, photos ...Photo) (*WorkOrder, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range photos {
		part, err := mw.CreateFormFile("photos", p.Name)
		if err != nil {
			return nil, fmt.Errorf("taller: photo %s: %w", p.Name, err)
		}
		if _, err := io.Copy(part, p.Body); err != nil {
			return nil, fmt.Errorf("taller: photo %s: %w", p.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("taller: photos: %w", err)
	}

	var out WorkOrder
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathf(workOrdersPath+"/%s/photos/%s", id, phase),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemovePhoto(ctx context.Context, id string, phase Phase, index int) (*WorkOrder, error) {
	return call[WorkOrder](ctx, c, http.MethodDelete,
		pathf(workOrdersPath+"/%s/photos/%s/%s", id, phase, index), nil)
}

// DownloadPhoto copies one stored photo into w and returns its content type.
func (c *Client) DownloadPhoto(ctx context.Context, id string, phase Phase, index int, w io.Writer) (string, error) {
	r := request{method: http.MethodGet, path: pathf(workOrdersPath+"/%s/photos/%s/%s", id, phase, index)}
	resp, err := c.send(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", &NetworkError{Method: r.method, Path: r.path, Err: err}
	}
	return resp.Header.Get("Content-Type"), nil
}

// WorkOrderAudit returns the change history of an order. Admin only.
func (c *Client) WorkOrderAudit(ctx context.Context, id string) ([]map[string]any, error) {
	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf(workOrdersPath+"/%s/audit", id)}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
