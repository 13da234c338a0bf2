package hospital

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Authenticate requires a hospital bearer token and loads the hospital.
func Authenticate(tokens *auth.TokenService, svc *Service) echo.MiddlewareFunc {
	return auth.Require[*Hospital](tokens, auth.KindHospital, svc.Get)
}

// Current returns the authenticated hospital. It panics if the route was not
// wrapped with Authenticate.
func Current(c echo.Context) *Hospital {
	h, ok := auth.Principal[*Hospital](c, auth.KindHospital)
	if !ok {
		panic("hospital.Current called on a route without hospital authentication")
	}
	return h
}

// RegisterRoutes mounts the hospital routes. public wraps the unauthenticated
// registration route.
func (h *Handler) RegisterRoutes(e *echo.Echo, public, requireHospital echo.MiddlewareFunc) {
	e.POST("/hospitals", h.Register, public)
	e.GET("/hospitals", h.List, requireHospital)
	e.GET("/hospitals/me", h.Me, requireHospital)
}

func (h *Handler) Register(c echo.Context) error {
	var in Registration
	if err := c.Bind(&in); err != nil {
		return apperr.MalformedBody(err)
	}
	created, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	hospitals, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, pg, total)
	return c.JSON(http.StatusOK, hospitals)
}

func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, Current(c))
}
