// Package tenant works out which shop a request addresses and whether the
// authenticated caller owns it.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"shopgate/internal/services"
)

// Outcome is what the caller should do with a tenant-scoped request.
type Outcome int

const (
	// Render the tenant-scoped view for Decision.Shop.
	Render Outcome = iota
	// DefaultView means no tenant was addressed; show the user's general view.
	DefaultView
	// RedirectSignin means the caller is not authenticated.
	RedirectSignin
	// RedirectDashboard means the caller is authenticated but does not own the shop.
	RedirectDashboard
	// Unavailable means the session could not be checked; the caller may retry.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case DefaultView:
		return "default_view"
	case RedirectSignin:
		return "redirect_signin"
	case RedirectDashboard:
		return "redirect_dashboard"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Source records where the candidate tenant name came from.
type Source int

const (
	SourceNone Source = iota
	SourcePath
	SourceHost
)

// Request is the tenant addressing of one incoming request.
type Request struct {
	Shop   string
	Source Source
}

// Decision is the result of resolving a tenant request.
type Decision struct {
	Outcome Outcome
	// Shop is the stored spelling of the owned shop when Outcome is Render.
	Shop    string
	Session *services.Session
	// Notice is a user-visible message for RedirectDashboard.
	Notice  string
}

// SessionValidator validates a session token freshly on every call.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*services.Session, error)
}

// ShopMatcher checks a candidate against the shops a session owns.
type ShopMatcher interface {
	MatchShop(owned []string, candidate string, foldCase bool) (string, bool)
}

// Resolver decides whether a tenant-scoped request may be served.
type Resolver struct {
	sessions   SessionValidator
	shops      ShopMatcher
	baseDomain string
}

// NewResolver creates a Resolver. baseDomain may be empty, in which case the
// first label of any non-local host is treated as the tenant.
func NewResolver(sessions SessionValidator, shops ShopMatcher, baseDomain string) *Resolver {
	return &Resolver{
		sessions:   sessions,
		shops:      shops,
		baseDomain: strings.ToLower(strings.TrimSuffix(strings.TrimSpace(baseDomain), ".")),
	}
}

// Candidate derives the addressed tenant: a path parameter wins, then the
// subdomain of host, else none.
func (r *Resolver) Candidate(host, pathParam string) Request {
	if shop := strings.TrimSpace(pathParam); shop != "" {
		return Request{Shop: shop, Source: SourcePath}
	}
	if label := subdomain(host, r.baseDomain); label != "" {
		return Request{Shop: label, Source: SourceHost}
	}
	return Request{Source: SourceNone}
}

// Resolve authenticates first and only then checks ownership, so an
// unauthenticated caller learns nothing about which shop names exist.
func (r *Resolver) Resolve(ctx context.Context, req Request, token string) Decision {
	if req.Source == SourceNone || req.Shop == "" {
		return Decision{Outcome: DefaultView}
	}

	session, err := r.sessions.ValidateSession(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrUnavailable) {
			log.Printf("Tenant resolution for %q could not validate session: %v", req.Shop, err)
			return Decision{Outcome: Unavailable}
		}
		return Decision{Outcome: RedirectSignin}
	}

	shop, ok := r.shops.MatchShop(session.ShopNames, req.Shop, req.Source == SourceHost)
	if !ok {
		return Decision{
			Outcome: RedirectDashboard,
			Session: session,
			Notice:  fmt.Sprintf("Invalid shop name: %s", req.Shop),
		}
	}
	return Decision{Outcome: Render, Shop: shop, Session: session}
}

// subdomain returns the first label of host when it addresses a tenant.
func subdomain(host, baseDomain string) string {
	hostname := strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(hostname); err == nil {
		hostname = h
	}
	hostname = strings.TrimSuffix(hostname, ".")
	if hostname == "" || isLocal(hostname) {
		return ""
	}

	if baseDomain != "" {
		prefix, ok := strings.CutSuffix(hostname, "."+baseDomain)
		if !ok || prefix == "" || strings.Contains(prefix, ".") {
			return ""
		}
		return prefix
	}

	label, _, found := strings.Cut(hostname, ".")
	if !found {
		return ""
	}
	return label
}

func isLocal(hostname string) bool {
	if hostname == "localhost" {
		return true
	}
	return net.ParseIP(strings.Trim(hostname, "[]")) != nil
}
