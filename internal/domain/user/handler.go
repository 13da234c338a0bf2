package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/records/internal/domain/hospital"
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

// Authenticate requires a user bearer token and loads the user.
func Authenticate(tokens *auth.TokenService, svc *Service) echo.MiddlewareFunc {
	return auth.Require[*User](tokens, auth.KindUser, svc.Get)
}

// Current returns the authenticated user. It panics if the route was not
// wrapped with Authenticate.
func Current(c echo.Context) *User {
	u, ok := auth.Principal[*User](c, auth.KindUser)
	if !ok {
		panic("user.Current called on a route without user authentication")
	}
	return u
}

func (h *Handler) RegisterRoutes(e *echo.Echo, requireHospital, requireUser echo.MiddlewareFunc) {
	e.POST("/hospitals/users", h.Create, requireHospital)
	e.GET("/hospitals/users", h.List, requireHospital)

	e.GET("/users/me", h.Me, requireUser)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateRequest
	if err := c.Bind(&in); err != nil {
		return apperr.MalformedBody(err)
	}
	caller := hospital.Current(c)
	created, err := h.svc.Create(c.Request().Context(), caller.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c echo.Context) error {
	caller := hospital.Current(c)
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListByHospital(c.Request().Context(), caller.ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, pg, total)
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, Current(c))
}
