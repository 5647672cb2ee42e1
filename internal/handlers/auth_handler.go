package handlers

import (
	"log"
	"time"

	"shopgate/internal/config"
	"shopgate/internal/middleware"
	"shopgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService  *services.AuthService
	transport    string
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, transport string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		transport:    transport,
		cookieSecure: cookieSecure,
	}
}

// RegisterRoutes registers the authentication routes. signinLimit guards
// /auth/signin and may be nil.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, signinLimit fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignup)
	if signinLimit != nil {
		authRoutes.Post("/signin", signinLimit, h.HandleSignin)
	} else {
		authRoutes.Post("/signin", h.HandleSignin)
	}
	authRoutes.Get("/profile", h.HandleProfile)
	authRoutes.Post("/logout", h.HandleLogout)

	router.Get("/api/auth/validate-token", h.HandleValidateToken)
}

// signupRequest mirrors services.SignupInput on the wire.
type signupRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Shops    []string `json:"shops"`
}

// HandleSignup creates an account. It does not sign the user in.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing signup request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	err := h.authService.Signup(c.UserContext(), services.SignupInput{
		Username:  req.Username,
		Password:  req.Password,
		ShopNames: req.Shops,
	})
	if err != nil {
		return respondError(c, "signup", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
	})
}

// signinRequest represents the request body for signin.
type signinRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// HandleSignin verifies credentials and issues a session token.
func (h *AuthHandler) HandleSignin(c *fiber.Ctx) error {
	var req signinRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing signin request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	result, err := h.authService.Signin(c.UserContext(), services.SigninInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return respondError(c, "signin", err)
	}

	if h.transport == config.TransportCookie {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    result.Token,
			Path:     "/",
			Expires:  result.ExpiresAt,
			HTTPOnly: true,
			Secure:   h.cookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.UTC().Format(time.RFC3339),
		"shopNames": result.ShopNames,
	})
}

// HandleProfile returns the caller's identity and current shops.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	session, err := h.authService.ValidateSession(c.UserContext(), middleware.TokenFromRequest(c, h.transport))
	if err != nil {
		return respondError(c, "profile", err)
	}
	return c.JSON(session)
}

// HandleValidateToken is the shape consumed by the shop dashboard client.
func (h *AuthHandler) HandleValidateToken(c *fiber.Ctx) error {
	session, err := h.authService.ValidateSession(c.UserContext(), middleware.TokenFromRequest(c, h.transport))
	if err != nil {
		status := statusFor(err)
		return c.Status(status).JSON(fiber.Map{
			"valid":   false,
			"message": services.PublicMessage(err),
		})
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"user":  session,
	})
}

// HandleLogout always succeeds. Tokens are stateless, so the client discards
// its copy; in cookie transport the cookie is cleared as well.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext()); err != nil {
		log.Printf("Logout hook failed: %v", err)
	}
	if h.transport == config.TransportCookie {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   h.cookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
		"success": true,
	})
}
