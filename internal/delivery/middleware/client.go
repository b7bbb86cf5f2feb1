package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"

	"lexcourt/config"
	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/constants"
)

const clientCookieMaxAge = 400 * 24 * time.Hour

// ClientMiddleware binds each request to a client context through the
// lex_client cookie. Every client context owns one session manager.
type ClientMiddleware struct {
	secure bool
}

// NewClientMiddleware creates the client context middleware.
func NewClientMiddleware(cfg *config.Config) *ClientMiddleware {
	return &ClientMiddleware{secure: cfg.HTTP.SecureCookies}
}

// Process reuses a valid client cookie or issues a new one.
func (m *ClientMiddleware) Process(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		clientID := ""
		if cookie, err := c.Cookie(constants.ClientCookieName); err == nil {
			if id, err := ksuid.Parse(cookie.Value); err == nil {
				clientID = id.String()
			}
		}

		if clientID == "" {
			clientID = ksuid.New().String()
			c.SetCookie(&http.Cookie{
				Name:     constants.ClientCookieName,
				Value:    clientID,
				Path:     "/",
				MaxAge:   int(clientCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		deliverycontext.SetClientID(c, clientID)

		return next(c)
	}
}
