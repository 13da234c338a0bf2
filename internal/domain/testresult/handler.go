package testresult

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/records/internal/domain/hospital"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, requireHospital, requirePatient echo.MiddlewareFunc) {
	e.POST("/hospitals/patients/:patient_id/test_results", h.Create, requireHospital)
	e.GET("/hospitals/patients/:patient_id/test_results", h.ListForHospital, requireHospital)
	e.GET("/test_types", h.ListTypes, requireHospital)

	e.GET("/patients/test_results", h.ListForPatient, requirePatient)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateRequest
	if err := c.Bind(&in); err != nil {
		return apperr.MalformedBody(err)
	}
	created, err := h.svc.Create(c.Request().Context(), hospital.Current(c).ID, c.Param("patient_id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListForHospital(c echo.Context) error {
	pg := pagination.FromContext(c)
	results, total, err := h.svc.ListForHospital(c.Request().Context(), hospital.Current(c).ID, c.Param("patient_id"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, pg, total)
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	pg := pagination.FromContext(c)
	results, total, err := h.svc.ListForPatient(c.Request().Context(), patient.Current(c).ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, pg, total)
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) ListTypes(c echo.Context) error {
	types, err := h.svc.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types)
}
