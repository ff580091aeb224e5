package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	appctx "taller/internal/core/context"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/domain"
	"taller/internal/domain/auth"
	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/commission"
	"taller/internal/domain/documents/work_order"
	"taller/internal/domain/domaintest"
	"taller/internal/infrastructure/http/v1/dto"
	"taller/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterGinValidators(); err != nil {
		panic(err)
	}
}

type customerRepo struct {
	*domaintest.CatalogRepo[*customer.Customer]
}

func (r customerRepo) GetByDocument(ctx context.Context, docType customer.DocumentType, number string) (*customer.Customer, error) {
	c, ok := r.Find(func(c *customer.Customer) bool {
		return c.DocumentType == docType && c.DocumentNumber != nil && *c.DocumentNumber == number
	})
	if !ok {
		return nil, apperror.NewNotFound("customer", number)
	}
	return c, nil
}

// newEngine mirrors the production middleware order and injects a user with
// the given permissions plus a passthrough transaction manager.
func newEngine(perms ...string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Recovery())
	r.Use(func(c *gin.Context) {
		ctx := tenant.WithTxManager(c.Request.Context(), tx.Passthrough{})
		ctx = appctx.WithUser(ctx, &appctx.UserContext{
			UserID:      id.New().String(),
			TenantID:    "t1",
			Permissions: perms,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func customerEngine(t *testing.T) *gin.Engine {
	t.Helper()
	svc := customer.NewService(customerRepo{domaintest.NewCatalogRepo[*customer.Customer]("customer")}, &numerator.MockGenerator{})
	h := NewCustomerHandler(NewBaseHandler(), svc)

	r := newEngine(auth.PermCatalogWrite)
	g := r.Group("/customers")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func TestCustomerCRUD(t *testing.T) {
	r := customerEngine(t)

	w, created := do(t, r, http.MethodPost, "/customers", map[string]any{
		"name":           "Ana Ruiz",
		"documentType":   "CC",
		"documentNumber": "1020304050",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID, _ := created["id"].(string)
	require.NotEmpty(t, customerID)
	assert.NotEmpty(t, created["code"])

	w, got := do(t, r, http.MethodGet, "/customers/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana Ruiz", got["name"])

	w, _ = do(t, r, http.MethodPut, "/customers/"+customerID, map[string]any{
		"name":    "Ana María Ruiz",
		"version": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, list := do(t, r, http.MethodGet, "/customers?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, list["totalCount"])

	w, _ = do(t, r, http.MethodDelete, "/customers/"+customerID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, list = do(t, r, http.MethodGet, "/customers", nil)
	assert.EqualValues(t, 0, list["totalCount"])
}

func TestCustomerErrors(t *testing.T) {
	r := customerEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed id", http.MethodGet, "/customers/not-a-uuid", nil, http.StatusBadRequest, apperror.CodeValidation},
		{"unknown id", http.MethodGet, "/customers/" + id.New().String(), nil, http.StatusNotFound, apperror.CodeNotFound},
		{"missing name", http.MethodPost, "/customers", map[string]any{"documentType": "CC"}, http.StatusBadRequest, apperror.CodeValidation},
		{"bad document type", http.MethodPost, "/customers", map[string]any{"name": "X", "documentType": "ZZ"}, http.StatusBadRequest, apperror.CodeValidation},
		{"bad list window", http.MethodGet, "/customers?limit=1000", nil, http.StatusBadRequest, apperror.CodeValidation},
		{"bad filter json", http.MethodGet, "/customers?filter=%7B", nil, http.StatusBadRequest, apperror.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestDuplicateDocumentIsConflict(t *testing.T) {
	r := customerEngine(t)
	body := map[string]any{"name": "Ana", "documentType": "CC", "documentNumber": "55555"}

	w, _ := do(t, r, http.MethodPost, "/customers", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := do(t, r, http.MethodPost, "/customers", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, resp["code"])
}

func TestValidationErrorListsFields(t *testing.T) {
	r := customerEngine(t)
	w, body := do(t, r, http.MethodPost, "/customers", map[string]any{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	details, _ := body["details"].(map[string]any)
	require.NotNil(t, details)
	fields, _ := details["fields"].(map[string]any)
	assert.Equal(t, "required", fields["Name"])
	assert.Equal(t, "email", fields["Email"])
}

func TestWorkOrderRequestValidation(t *testing.T) {
	h := NewWorkOrderHandler(NewBaseHandler(), work_order.NewService(work_order.Config{}), nil)
	r := newEngine(auth.PermOrdersWrite)
	r.PATCH("/work-orders/:id/status", h.ChangeStatus)
	r.POST("/work-orders/:id/photos/:phase", h.AddPhotos)
	r.DELETE("/work-orders/:id/photos/:phase/:index", h.RemovePhoto)
	r.GET("/work-orders/:id/photos/:phase/:index", h.Photo)
	r.POST("/work-orders/:id/items", h.AddItem)

	orderPath := "/work-orders/" + id.New().String()
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown status", http.MethodPatch, orderPath + "/status", map[string]any{"status": "flying"}, http.StatusBadRequest},
		{"missing status", http.MethodPatch, orderPath + "/status", map[string]any{}, http.StatusBadRequest},
		{"bad order id", http.MethodPatch, "/work-orders/x/status", map[string]any{"status": "entregado"}, http.StatusBadRequest},
		{"bad phase", http.MethodPost, orderPath + "/photos/middle", nil, http.StatusBadRequest},
		{"not multipart", http.MethodPost, orderPath + "/photos/in", nil, http.StatusBadRequest},
		{"negative index", http.MethodDelete, orderPath + "/photos/in/-1", nil, http.StatusBadRequest},
		{"downloads disabled", http.MethodGet, orderPath + "/photos/in/0", nil, http.StatusNotFound},
		{"bad item type", http.MethodPost, orderPath + "/items", map[string]any{"itemType": "gift", "unitPrice": "1000"}, http.StatusBadRequest},
		{"missing price", http.MethodPost, orderPath + "/items", map[string]any{"itemType": "servicio"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

type vehicleRepo struct {
	*domaintest.CatalogRepo[*vehicle.Vehicle]
}

func (r vehicleRepo) GetByPlate(ctx context.Context, plate string) (*vehicle.Vehicle, error) {
	return r.GetByCode(ctx, plate)
}

func (r vehicleRepo) UpdateMileage(ctx context.Context, vehicleID id.ID, km int64) (bool, error) {
	return false, nil
}

// orderList serves List only; the history endpoint reads nothing else.
type orderList struct {
	work_order.Repository
	orders []*work_order.WorkOrder
}

func (r orderList) List(ctx context.Context, f work_order.ListFilter) (domain.ListResult[*work_order.WorkOrder], error) {
	var out []*work_order.WorkOrder
	for _, wo := range r.orders {
		if f.VehicleID == nil || wo.VehicleID == *f.VehicleID {
			out = append(out, wo)
		}
	}
	return domain.ListResult[*work_order.WorkOrder]{Items: out, TotalCount: int64(len(out)), Limit: f.Limit, Offset: f.Offset}, nil
}

func TestVehicleHistoryIncludesVehicle(t *testing.T) {
	ctx := tenant.WithTxManager(context.Background(), tx.Passthrough{})
	vehicles := vehicle.NewService(vehicleRepo{domaintest.NewCatalogRepo[*vehicle.Vehicle]("vehicle")})
	v := vehicle.NewVehicle("abc-123")
	require.NoError(t, vehicles.Create(ctx, v))

	mine := work_order.NewWorkOrder(v.ID)
	mine.Number = "OT-00001"
	other := work_order.NewWorkOrder(id.New())
	other.Number = "OT-00002"
	orders := work_order.NewService(work_order.Config{Repo: orderList{orders: []*work_order.WorkOrder{mine, other}}})

	h := NewVehicleHandler(NewBaseHandler(), vehicles, orders)
	r := newEngine(auth.PermOrdersRead)
	r.GET("/vehicles/:id/history", h.History)

	w, body := do(t, r, http.MethodGet, "/vehicles/"+v.ID.String()+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	veh, ok := body["vehicle"].(map[string]any)
	require.True(t, ok, w.Body.String())
	assert.Equal(t, v.ID.String(), veh["id"])
	assert.Equal(t, "ABC123", veh["plate"])

	hist, ok := body["history"].(map[string]any)
	require.True(t, ok, w.Body.String())
	items, ok := hist["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "OT-00001", items[0].(map[string]any)["number"])
	assert.EqualValues(t, 20, hist["limit"])

	w, body = do(t, r, http.MethodGet, "/vehicles/"+id.New().String()+"/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestCommissionRequestValidation(t *testing.T) {
	h := NewCommissionHandler(NewBaseHandler(), commission.NewService(commission.Config{}))
	r := newEngine(auth.PermCommissionRead, auth.PermCommissionWrite)
	r.GET("/preview", h.Preview)
	r.POST("/settlements", h.Create)

	techID := id.New().String()

	w, body := do(t, r, http.MethodGet, "/preview?technician_id="+techID+"&date_from=2026-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body["code"])

	w, _ = do(t, r, http.MethodGet, "/preview?technician_id="+techID+"&date_from=2026-02-10&date_to=2026-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "reversed range")

	w, _ = do(t, r, http.MethodPost, "/settlements", map[string]any{
		"technicianId": "nope",
		"dateFrom":     "2026-02-01",
		"dateTo":       "2026-02-28",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorRendering(t *testing.T) {
	base := NewBaseHandler()
	r := newEngine()
	r.GET("/transition", func(c *gin.Context) {
		base.Error(c, apperror.NewInvalidTransition("work_order", "recibido", "entregado"))
	})
	r.GET("/wrapped", func(c *gin.Context) {
		base.Error(c, fmt.Errorf("generate sale: %w", apperror.NewNotReady("en_proceso")))
	})
	r.GET("/boom", func(c *gin.Context) {
		base.Error(c, errors.New("connection reset"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("nil map")
	})

	w, body := do(t, r, http.MethodGet, "/transition", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInvalidTransition, body["code"])

	w, body = do(t, r, http.MethodGet, "/wrapped", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "WORK_ORDER_NOT_READY", body["code"])

	for _, path := range []string{"/boom", "/panic"} {
		w, body = do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Equal(t, apperror.CodeInternal, body["code"], path)
		assert.NotContains(t, w.Body.String(), "connection reset")
		assert.NotContains(t, w.Body.String(), "nil map")
	}
}

func TestPermissionDenied(t *testing.T) {
	r := newEngine(auth.PermOrdersRead)
	r.POST("/settle", middleware.RequirePermission(auth.PermCommissionWrite), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	w, body := do(t, r, http.MethodPost, "/settle", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeForbidden, body["code"])
}

func TestHealth(t *testing.T) {
	r := gin.New()
	h := NewHealthHandler("test", nil, map[string]CheckFunc{
		"meta_database": func(context.Context) error { return nil },
		"redis":         func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	r.GET("/live", h.Live)
	r.GET("/ready", h.Ready)
	r.GET("/info", h.Info)

	w, _ := do(t, r, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks, _ := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["meta_database"])
	assert.Contains(t, checks["redis"], "unhealthy")

	w, body = do(t, r, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", body["version"])
}
