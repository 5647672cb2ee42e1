package handlers

import (
	"fmt"
	"net/url"

	"shopgate/internal/middleware"
	"shopgate/internal/tenant"

	"github.com/gofiber/fiber/v2"
)

// Redirect targets served by the frontend.
const (
	SigninPath    = "/signin"
	DashboardPath = "/dashboard"
)

// TenantHandler serves tenant-scoped requests addressed by path or subdomain.
type TenantHandler struct {
	resolver  *tenant.Resolver
	transport string
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(resolver *tenant.Resolver, transport string) *TenantHandler {
	return &TenantHandler{
		resolver:  resolver,
		transport: transport,
	}
}

// RegisterRoutes registers the dashboard and shop routes. authRequired guards
// the dashboard; shop routes run their own resolution.
func (h *TenantHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Get(DashboardPath, authRequired, h.HandleDashboard)
	router.Get("/shop/:shopName", h.HandleShop)
	router.Get("/", h.HandleRoot)
}

// HandleDashboard renders the user's general view.
func (h *TenantHandler) HandleDashboard(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	body := fiber.Map{
		"username":  session.Username,
		"shopNames": session.ShopNames,
	}
	if notice := c.Query("notice"); notice != "" {
		body["notice"] = notice
	}
	return c.JSON(body)
}

// HandleShop resolves https://{baseDomain}/shop/{shopName}.
func (h *TenantHandler) HandleShop(c *fiber.Ctx) error {
	shopName, err := url.PathUnescape(c.Params("shopName"))
	if err != nil {
		shopName = c.Params("shopName")
	}
	req := h.resolver.Candidate(c.Hostname(), shopName)
	return h.respond(c, req, DashboardPath)
}

// HandleRoot resolves https://{shopName}.{baseDomain}/. Without a subdomain
// the caller is sent to sign in.
func (h *TenantHandler) HandleRoot(c *fiber.Ctx) error {
	req := h.resolver.Candidate(c.Hostname(), "")
	return h.respond(c, req, SigninPath)
}

func (h *TenantHandler) respond(c *fiber.Ctx, req tenant.Request, defaultView string) error {
	token := middleware.TokenFromRequest(c, h.transport)
	decision := h.resolver.Resolve(c.UserContext(), req, token)

	switch decision.Outcome {
	case tenant.Render:
		return c.JSON(fiber.Map{
			"shop":     decision.Shop,
			"username": decision.Session.Username,
			"message":  fmt.Sprintf("This is %s shop", decision.Shop),
		})
	case tenant.DefaultView:
		return c.Redirect(defaultView, fiber.StatusFound)
	case tenant.RedirectSignin:
		return c.Redirect(SigninPath, fiber.StatusFound)
	case tenant.RedirectDashboard:
		c.Set("X-Tenant-Notice", decision.Notice)
		return c.Redirect(DashboardPath+"?notice="+url.QueryEscape(decision.Notice), fiber.StatusFound)
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Service temporarily unavailable, please retry",
		})
	}
}
