package handlers

import (
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	"taller/internal/domain/documents/work_order"
	"taller/internal/infrastructure/http/v1/dto"
)

// PhotoFiles opens stored photos for download.
type PhotoFiles interface {
	Open(path string) (*os.File, error)
}

type WorkOrderHandler struct {
	*BaseHandler
	service *work_order.Service
	files   PhotoFiles
}

// NewWorkOrderHandler builds the handler; files may be nil, which disables downloads.
func NewWorkOrderHandler(base *BaseHandler, service *work_order.Service, files PhotoFiles) *WorkOrderHandler {
	return &WorkOrderHandler{BaseHandler: base, service: service, files: files}
}

func (h *WorkOrderHandler) respond(c *gin.Context, status int, wo *work_order.WorkOrder) {
	resp := dto.FromWorkOrder(wo, h.service.Presentation(c.Request.Context(), wo))
	if status == http.StatusCreated {
		h.Created(c, resp)
		return
	}
	h.OK(c, resp)
}

// List handles GET /work-orders.
func (h *WorkOrderHandler) List(c *gin.Context) {
	var q dto.WorkOrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	result, err := h.service.List(ctx, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(result, func(wo *work_order.WorkOrder) dto.WorkOrderSummary {
		return dto.FromWorkOrderSummary(wo, h.service.Presentation(ctx, wo))
	}))
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	wo, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

// Create handles POST /work-orders. The order starts in recibido.
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusCreated, wo)
}

func (h *WorkOrderHandler) Update(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateWorkOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.Update(c.Request.Context(), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

// ChangeStatus handles PATCH /work-orders/:id/status.
func (h *WorkOrderHandler) ChangeStatus(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.ChangeStatus(c.Request.Context(), orderID, work_order.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

func (h *WorkOrderHandler) AddItem(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.WorkOrderItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.AddItem(c.Request.Context(), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusCreated, wo)
}

func (h *WorkOrderHandler) RemoveItem(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	wo, err := h.service.RemoveItem(c.Request.Context(), orderID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

// SaveChecklist handles PUT /work-orders/:id/checklist.
func (h *WorkOrderHandler) SaveChecklist(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req work_order.Checklist
	if !h.BindJSON(c, &req) {
		return
	}
	wo, err := h.service.SaveChecklist(c.Request.Context(), orderID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

// GenerateSale handles POST /work-orders/:id/generate-sale.
func (h *WorkOrderHandler) GenerateSale(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.service.GenerateSale(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	pres := h.service.Presentation(ctx, res.Order)
	h.Created(c, dto.GenerateSaleResponse{
		WorkOrder: dto.FromWorkOrder(res.Order, pres),
		Sale:      dto.FromSale(res.Sale, pres.TaxHidden),
	})
}

// AddPhotos handles POST /work-orders/:id/photos/:phase as multipart with
// one or more "photos" parts.
func (h *WorkOrderHandler) AddPhotos(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	phase, err := work_order.ParsePhase(c.Param("phase"))
	if err != nil {
		h.Error(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		h.Error(c, apperror.NewValidation("multipart form expected").WithDetail("field", "photos").WithCause(err))
		return
	}

	headers := form.File["photos"]
	uploads := make([]work_order.PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.Error(c, apperror.NewValidation("unreadable upload").WithDetail("file", fh.Filename).WithCause(err))
			return
		}
		defer f.Close()
		uploads = append(uploads, work_order.PhotoUpload{Name: fh.Filename, Reader: f})
	}

	wo, err := h.service.AddPhotos(c.Request.Context(), orderID, phase, uploads)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusCreated, wo)
}

// RemovePhoto handles DELETE /work-orders/:id/photos/:phase/:index.
func (h *WorkOrderHandler) RemovePhoto(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	phase, err := work_order.ParsePhase(c.Param("phase"))
	if err != nil {
		h.Error(c, err)
		return
	}
	index, ok := h.ParamInt(c, "index")
	if !ok {
		return
	}
	wo, err := h.service.RemovePhoto(c.Request.Context(), orderID, phase, index)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, wo)
}

// Photo handles GET /work-orders/:id/photos/:phase/:index and streams the file.
func (h *WorkOrderHandler) Photo(c *gin.Context) {
	if h.files == nil {
		h.Error(c, apperror.NewNotFound("photo", c.Param("index")))
		return
	}
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	phase, err := work_order.ParsePhase(c.Param("phase"))
	if err != nil {
		h.Error(c, err)
		return
	}
	index, ok := h.ParamInt(c, "index")
	if !ok {
		return
	}
	wo, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	photos := wo.PhotosIn
	if phase == work_order.PhaseOut {
		photos = wo.PhotosOut
	}
	if index >= len(photos) {
		h.Error(c, apperror.NewNotFound("photo", index))
		return
	}

	f, err := h.files.Open(photos[index])
	if err != nil {
		if os.IsNotExist(err) {
			h.Error(c, apperror.NewNotFound("photo", index))
			return
		}
		h.Error(c, err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		h.Error(c, err)
		return
	}
	http.ServeContent(c.Writer, c.Request, path.Base(photos[index]), st.ModTime(), f)
}
