package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"formcraft/internal/config"
	"formcraft/internal/engine"
)

// Handler issues access tokens for the single configured user.
type Handler struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

func NewHandler(cfg config.AuthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, logger: logger.Named("auth")}
}

// TokenResponse is the body returned by a successful sign-in.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token handles POST /api/auth/token.
func (h *Handler) Token(c *fiber.Ctx) error {
	if !h.cfg.Enabled {
		return engine.NewAppError("AUTH_DISABLED", 404, "Authentication is not enabled")
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return engine.UnauthorizedError("Username and password are required")
	}

	if body.Username != h.cfg.Username || h.cfg.PasswordHash == "" || !CheckPassword(body.Password, h.cfg.PasswordHash) {
		h.logger.Warn("Rejected sign-in", zap.String("username", body.Username), zap.String("ip", c.IP()))
		return engine.UnauthorizedError("Invalid username or password")
	}

	token, err := GenerateAccessToken(body.Username, []string{RoleEditor}, h.cfg.JWTSecret, h.cfg.TokenTTL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.cfg.TokenTTL.Seconds()),
	}})
}

func RegisterAuthRoutes(app *fiber.App, h *Handler) {
	app.Post("/api/auth/token", h.Token)
}
