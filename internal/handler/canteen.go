package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/apperr"
	"campusportal/internal/canteen"
	"campusportal/internal/cloudinary"
	"campusportal/internal/metrics"
)

const maxImageSize = 5 << 20

type cartRequest struct {
	Items []canteen.LineInput `json:"items" binding:"required,dive"`
}

type statusRequest struct {
	Status canteen.OrderStatus `json:"status" binding:"required"`
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *Handler) canteenView(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	menu, err := h.Canteen.Menu(ctx)
	h.secondary("menu", err)
	own, err := h.Canteen.OwnOrders(ctx, v.ID)
	h.secondary("own orders", err)

	var all []canteen.Order
	if v.CanManageCanteen() {
		all, err = h.Canteen.AllOrders(ctx, v)
		h.secondary("all orders", err)
		all = orEmpty(all)
	}
	c.JSON(http.StatusOK, canteen.BuildView(menu, own, all))
}

func (h *Handler) quoteCart(c *gin.Context) {
	if _, ok := viewer(c); !ok {
		return
	}
	var req cartRequest
	if !h.bind(c, &req) {
		return
	}
	cart, err := h.Canteen.Quote(c.Request.Context(), req.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": cart.Lines(), "count": cart.Count(), "total": cart.Total()})
}

func (h *Handler) placeOrder(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	var req cartRequest
	if !h.bind(c, &req) {
		return
	}
	o, err := h.Canteen.PlaceOrder(c.Request.Context(), v, req.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("order", string(o.Status))
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanManageCanteen()) {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Canteen.UpdateStatus(c.Request.Context(), v, c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Changed {
		metrics.Transition("order", string(res.Order.Status))
	}
	c.JSON(http.StatusOK, res.Order)
}

// createItem accepts JSON or a multipart form with an optional "image" file.
func (h *Handler) createItem(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanManageCanteen()) {
		return
	}
	var in canteen.ItemInput
	if !h.bind(c, &in) {
		return
	}

	var img *canteen.Image
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("image")
		switch {
		case stderrors.Is(err, http.ErrMissingFile):
		case err != nil:
			h.fail(c, apperr.NewValidationError("invalid image upload"))
			return
		case fh.Size > maxImageSize:
			h.fail(c, apperr.NewValidationError("Image must be 5MB or smaller",
				apperr.FieldError{Field: "image", Error: "too large"}))
			return
		default:
			f, err := fh.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			defer f.Close()
			img = &canteen.Image{Body: f, Filename: fh.Filename}
		}
	}

	it, err := h.Canteen.CreateItem(c.Request.Context(), v, in, img)
	if stderrors.Is(err, cloudinary.ErrUnsupportedFormat) {
		err = apperr.NewValidationError("Image must be a JPG, PNG, WebP or GIF file",
			apperr.FieldError{Field: "image", Error: "unsupported format"})
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("menu_item", "created")
	c.JSON(http.StatusCreated, it)
}

func (h *Handler) setItemAvailability(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanManageCanteen()) {
		return
	}
	var req availabilityRequest
	if !h.bind(c, &req) {
		return
	}
	it, err := h.Canteen.SetAvailability(c.Request.Context(), v, c.Param("id"), *req.Available)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}
