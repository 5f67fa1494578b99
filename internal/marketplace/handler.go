package marketplace

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mware "github.com/sudo-init-do/masterhub/internal/middleware"
)

// Handler exposes the Market over HTTP.
type Handler struct {
	market *Market
	log    *zap.Logger
}

func NewHandler(market *Market, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{market: market, log: logger}
}

// Register mounts the public routes on pub and the authenticated ones on api.
func (h *Handler) Register(pub, api *echo.Group) {
	pub.GET("/services", h.ListServices)
	pub.GET("/services/:id", h.GetService)
	pub.GET("/services/master/:id", h.ListMasterServices)
	pub.GET("/reviews/master/:id", h.ListMasterReviews)
	pub.GET("/reviews/service/:id", h.ListServiceReviews)
	pub.GET("/users/:id/stats", h.GetMasterStats)

	sellers := mware.RequireRoles(RoleMaster, RoleAdmin)
	api.POST("/services", h.CreateService, sellers)
	api.GET("/services/me", h.ListMyServices)
	api.PUT("/services/:id", h.UpdateService, sellers)
	api.DELETE("/services/:id", h.DeleteService, sellers)

	api.POST("/orders", h.CreateOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.PATCH("/orders/:id/status", h.UpdateOrderStatus)

	api.POST("/reviews", h.SubmitReview)
	api.GET("/reviews/order/:id", h.GetOrderReview)
	api.POST("/reviews/:id/dispute", h.DisputeReview)
}

// actorFrom reads the identity the JWT middleware stored on the context.
func actorFrom(c echo.Context) (Actor, bool) {
	id, ok := c.Get("user_id").(string)
	if !ok || id == "" {
		return Actor{}, false
	}
	role, _ := c.Get("role").(string)
	return Actor{ID: id, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindNotFound, KindServiceNotFound:
		return http.StatusNotFound
	case KindForbidden, KindSelfOrderForbidden:
		return http.StatusForbidden
	case KindDuplicateReview, KindAlreadyDisputed, KindInvalidStateTransition:
		return http.StatusConflict
	case KindOrderNotCompleted, KindInvalidRating, KindInvalidReason, KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error", "code"}. Infrastructure failures are
// logged and hidden behind a generic message.
func WriteError(c echo.Context, log *zap.Logger, err error) error {
	kind := KindOf(err)
	if kind == "" {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(StatusFor(kind), echo.Map{"error": err.Error(), "code": kind})
}

func (h *Handler) fail(c echo.Context, err error) error {
	return WriteError(c, h.log, err)
}

// bindAndValidate decodes the body and runs the registered validator. The
// returned *echo.HTTPError carries the {"error","code"} body for echo's error
// handler to write.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid payload", "code": KindInvalidInput})
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": KindInvalidInput})
	}
	return nil
}

type pageQuery struct {
	Skip  int
	Limit int
}

func readPage(c echo.Context, defLimit int) (pageQuery, error) {
	p := pageQuery{Limit: defLimit}
	err := echo.QueryParamsBinder(c).
		Int("skip", &p.Skip).
		Int("limit", &p.Limit).
		BindError()
	return p, err
}

func badQuery(c echo.Context, err error) error {
	msg := "invalid query parameters"
	var be *echo.BindingError
	if errors.As(err, &be) {
		msg = "invalid value for " + be.Field
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": KindInvalidInput})
}

// =========================
// services
// =========================

func (h *Handler) ListServices(c echo.Context) error {
	pg, err := readPage(c, defaultPageSize)
	if err != nil {
		return badQuery(c, err)
	}
	f := ServiceFilter{
		Category: Category(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
		SortBy:   c.QueryParam("sort_by"),
		Skip:     pg.Skip,
		Limit:    pg.Limit,
	}
	var minPrice, maxPrice float64
	b := echo.QueryParamsBinder(c).Float64("min_price", &minPrice).Float64("max_price", &maxPrice)
	if err := b.BindError(); err != nil {
		return badQuery(c, err)
	}
	if c.QueryParam("min_price") != "" {
		f.MinPrice = &minPrice
	}
	if c.QueryParam("max_price") != "" {
		f.MaxPrice = &maxPrice
	}

	items, total, err := h.market.ListServices(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "skip": f.Skip, "limit": f.Limit, "services": items})
}

func (h *Handler) GetService(c echo.Context) error {
	svc, err := h.market.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) ListMasterServices(c echo.Context) error {
	items, err := h.market.ListMasterServices(c.Request().Context(), c.Param("id"), false)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": len(items), "services": items})
}

func (h *Handler) ListMyServices(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.market.ListMasterServices(c.Request().Context(), actor.ID, true)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": len(items), "services": items})
}

func (h *Handler) CreateService(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var in ServiceInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	svc, err := h.market.CreateService(c.Request().Context(), actor, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *Handler) UpdateService(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var p ServicePatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	svc, err := h.market.UpdateService(c.Request().Context(), c.Param("id"), actor, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) DeleteService(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.market.DeleteService(c.Request().Context(), c.Param("id"), actor); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// =========================
// orders
// =========================

func (h *Handler) CreateOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	order, err := h.market.CreateOrder(c.Request().Context(), actor, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListOrders(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	pg, err := readPage(c, defaultPageSize)
	if err != nil {
		return badQuery(c, err)
	}
	f := OrderFilter{
		Status: OrderStatus(c.QueryParam("status_filter")),
		Role:   c.QueryParam("role"),
		Skip:   pg.Skip,
		Limit:  pg.Limit,
	}
	orders, total, err := h.market.ListOrders(c.Request().Context(), actor, f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "skip": pg.Skip, "limit": pg.Limit, "orders": orders})
}

func (h *Handler) GetOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	order, err := h.market.GetOrder(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var upd StatusUpdate
	if err := bindAndValidate(c, &upd); err != nil {
		return err
	}
	order, err := h.market.UpdateStatus(c.Request().Context(), c.Param("id"), actor, upd)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order status updated", "order": order})
}

// =========================
// reviews
// =========================

func (h *Handler) SubmitReview(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.market.SubmitReview(c.Request().Context(), actor, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetOrderReview(c echo.Context) error {
	review, err := h.market.GetReviewForOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"review": review})
}

func (h *Handler) DisputeReview(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req DisputeReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload", "code": KindInvalidInput})
	}
	review, err := h.market.DisputeReview(c.Request().Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Review disputed", "review": review})
}

func (h *Handler) ListMasterReviews(c echo.Context) error {
	pg, err := readPage(c, defaultPageSize)
	if err != nil {
		return badQuery(c, err)
	}
	reviews, total, err := h.market.ListReviewsForMaster(c.Request().Context(), c.Param("id"), pg.Skip, pg.Limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews, "total": total, "skip": pg.Skip, "limit": pg.Limit})
}

func (h *Handler) ListServiceReviews(c echo.Context) error {
	pg, err := readPage(c, defaultPageSize)
	if err != nil {
		return badQuery(c, err)
	}
	reviews, total, err := h.market.ListReviewsForService(c.Request().Context(), c.Param("id"), c.QueryParam("sort"), pg.Skip, pg.Limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews, "total": total, "skip": pg.Skip, "limit": pg.Limit})
}

func (h *Handler) GetMasterStats(c echo.Context) error {
	stats, err := h.market.MasterStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
