package scraper

import (
	"context"
	"strings"
	"time"

	"catercal/config"
	"catercal/internal/browser"
	"catercal/logger"
	"catercal/pkg/errors"
)

// Session drives the portal's outer chrome: signing in and reaching the
// orders page. It uses the page-level driver, not the frame-scoped one.
type Session struct {
	d   browser.Driver
	cfg *config.Config
	log *logger.Logger
}

// NewSession creates a portal session
func NewSession(d browser.Driver, cfg *config.Config) *Session {
	return &Session{
		d:   d,
		cfg: cfg,
		log: logger.ForScraper(),
	}
}

// Login signs in to the vendor portal and verifies the sign-in page was
// left behind.
func (s *Session) Login(ctx context.Context) error {
	s.log.Info().Msg("Logging in to vendor portal")

	if err := s.d.Navigate(ctx, s.cfg.PortalLoginURL); err != nil {
		return errors.NewUI("session", "login page did not load", err)
	}
	if err := s.d.Fill(ctx, selLoginEmail, s.cfg.PortalLoginID); err != nil {
		return errors.NewUI("session", "email field not fillable", err)
	}
	if err := s.d.Fill(ctx, selLoginPassword, s.cfg.PortalPassword); err != nil {
		return errors.NewUI("session", "password field not fillable", err)
	}
	if err := s.d.Click(ctx, selLoginSubmit); err != nil {
		return errors.NewUI("session", "submit click failed", err)
	}
	if err := s.d.WaitNetworkSettle(ctx, s.cfg.BrowserTimeout); err != nil {
		return err
	}

	url, err := s.d.CurrentURL(ctx)
	if err != nil {
		return errors.NewUI("session", "current url unreadable after login", err)
	}
	if strings.Contains(url, "Home/SignIn") && !strings.Contains(url, "VendorPortal") {
		return errors.NewStructural("session", "login failed, still on sign-in page", 1, nil)
	}

	s.log.Info().Msg("Login successful")
	return nil
}

// OpenOrders navigates to the orders page
func (s *Session) OpenOrders(ctx context.Context) error {
	s.log.Info().Msg("Navigating to orders page")

	if err := s.d.Click(ctx, xpathViewOrders); err != nil {
		s.log.Info().Msg("Using fallback selector for View Orders")
		if err := s.d.Click(ctx, selViewOrdersFallback); err != nil {
			return errors.NewUI("session", "view orders control not clickable", err)
		}
	}

	if err := s.waitForOrdersURL(ctx); err != nil {
		return err
	}
	return s.d.WaitNetworkSettle(ctx, s.cfg.BrowserTimeout)
}

func (s *Session) waitForOrdersURL(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.BrowserTimeout)
	for {
		url, err := s.d.CurrentURL(ctx)
		if err == nil && strings.Contains(url, "/VendorPortal/Orders") {
			s.log.Info().Str("url", url).Msg("At orders page")
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewStructural("session", "orders page never loaded", 1, err)
		}
		if err := s.d.Sleep(ctx, 250*time.Millisecond); err != nil {
			return err
		}
	}
}
