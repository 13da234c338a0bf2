package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the token endpoint.
type Handler struct {
	verifier *CredentialVerifier
}

func NewHandler(verifier *CredentialVerifier) *Handler {
	return &Handler{verifier: verifier}
}

// RegisterRoutes mounts POST /token. Extra middleware, such as login
// throttling, wraps only this route.
func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.POST("/token", h.Token, mw...)
}

// Token accepts a form-encoded grant_type/username/password triple.
func (h *Handler) Token(c echo.Context) error {
	tok, err := h.verifier.Login(c.Request().Context(),
		c.FormValue("grant_type"),
		c.FormValue("username"),
		c.FormValue("password"),
	)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, tok)
}
