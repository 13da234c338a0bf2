package patient

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

// Authenticate requires a patient bearer token and loads the patient.
func Authenticate(tokens *auth.TokenService, svc *Service) echo.MiddlewareFunc {
	return auth.Require[*Patient](tokens, auth.KindPatient, svc.Get)
}

// Current returns the authenticated patient. It panics if the route was not
// wrapped with Authenticate.
func Current(c echo.Context) *Patient {
	p, ok := auth.Principal[*Patient](c, auth.KindPatient)
	if !ok {
		panic("patient.Current called on a route without patient authentication")
	}
	return p
}

func (h *Handler) RegisterRoutes(e *echo.Echo, requireHospital, requirePatient echo.MiddlewareFunc) {
	e.GET("/hospitals/patients", h.List, requireHospital)
	e.POST("/hospitals/patients", h.Create, requireHospital)
	e.PATCH("/hospitals/patients/:patient_id", h.Update, requireHospital)

	e.GET("/patients/me", h.Me, requirePatient)
}

func (h *Handler) List(c echo.Context) error {
	caller := hospital.Current(c)
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListByHospital(c.Request().Context(), caller.ID, c.QueryParam("unique_id"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, pg, total)
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateRequest
	if err := c.Bind(&in); err != nil {
		return apperr.MalformedBody(err)
	}
	created, err := h.svc.Create(c.Request().Context(), hospital.Current(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateRequest
	if err := c.Bind(&in); err != nil {
		return apperr.MalformedBody(err)
	}
	updated, err := h.svc.Update(c.Request().Context(), hospital.Current(c).ID, c.Param("patient_id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, Current(c))
}
