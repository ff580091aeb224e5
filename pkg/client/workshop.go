package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	vehiclesPath    = "/workshop/vehicles"
	salesPath       = "/workshop/sales"
	settlementsPath = "/workshop/commission-settlements"
)

// Vehicles is the vehicle CRUD. Plate lookup and history live on Client.
func (c *Client) Vehicles() *Catalog[Vehicle, VehicleInput] {
	return newCatalog[Vehicle, VehicleInput](c, vehiclesPath)
}

// VehicleByPlate finds a vehicle by plate; the server normalizes it.
func (c *Client) VehicleByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	return get[Vehicle](ctx, c, pathf(vehiclesPath+"/by-plate/%s", plate), nil)
}

// VehicleHistory returns the vehicle and its orders, newest first.
func (c *Client) VehicleHistory(ctx context.Context, vehicleID string, opts ListOptions) (*VehicleHistory, error) {
	return get[VehicleHistory](ctx, c, pathf(vehiclesPath+"/%s/history", vehicleID), opts.values())
}

func (c *Client) ListSales(ctx context.Context, opts ListOptions) (*Page[Sale], error) {
	return get[Page[Sale]](ctx, c, salesPath, opts.values())
}

func (c *Client) GetSale(ctx context.Context, id string) (*Sale, error) {
	return get[Sale](ctx, c, pathf(salesPath+"/%s", id), nil)
}

func (c *Client) RegisterPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*Sale, error) {
	return call[Sale](ctx, c, http.MethodPost, pathf(salesPath+"/%s/payments", saleID), paymentRequest{Amount: amount})
}

// CommissionTechnicians lists active technicians with what they have
// pending to settle.
func (c *Client) CommissionTechnicians(ctx context.Context) ([]PendingCommission, error) {
	out, err := get[struct {
		Items []PendingCommission `json:"items"`
	}](ctx, c, settlementsPath+"/technicians", nil)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// PreviewCommission computes a settlement without writing it. Both dates are
// inclusive UTC calendar days.
func (c *Client) PreviewCommission(ctx context.Context, technicianID string, from, to time.Time) (*CommissionPreview, error) {
	q := url.Values{}
	q.Set("technician_id", technicianID)
	q.Set("date_from", from.Format(DateLayout))
	q.Set("date_to", to.Format(DateLayout))
	return get[CommissionPreview](ctx, c, settlementsPath+"/preview", q)
}

// CreateSettlement fails with IsNoEligibleOrders when the range holds no
// unsettled delivered order.
func (c *Client) CreateSettlement(ctx context.Context, in CreateSettlement) (*Settlement, error) {
	return call[Settlement](ctx, c, http.MethodPost, settlementsPath, in)
}

func (c *Client) ListSettlements(ctx context.Context, opts ListOptions) (*Page[Settlement], error) {
	return get[Page[Settlement]](ctx, c, settlementsPath, opts.values())
}

func (c *Client) GetSettlement(ctx context.Context, id string) (*Settlement, error) {
	return get[Settlement](ctx, c, pathf(settlementsPath+"/%s", id), nil)
}
