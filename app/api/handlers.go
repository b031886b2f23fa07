package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suivideflotte/fleet-intel/app/cfg"
	"github.com/suivideflotte/fleet-intel/app/session"
)

type Handler struct {
	reporter    ReporterInterface
	sessions    *session.Store
	caches      CacheInterface
	keyRequired bool
}

func NewHandler(reporter ReporterInterface, sessions *session.Store, caches CacheInterface) *Handler {
	return &Handler{
		reporter: reporter,
		sessions: sessions,
		caches:   caches,
	}
}

func (h *Handler) GetDashboard(c *gin.Context) {
	names := selectedNames(c)
	report := h.reporter.Collect(c.Request.Context(), names)

	selected := make(map[string]bool, len(report.Records))
	for _, record := range report.Records {
		selected[record.Competitor.Name] = true
	}

	c.HTML(http.StatusOK, dashboardTemplate, dashboardView{
		Report:        report,
		Competitors:   h.reporter.Registry().All(),
		Selected:      selected,
		Authenticated: h.sessions.State() == session.StateAuthenticated,
		KeyRequired:   h.keyRequired,
		Version:       cfg.GetVersion(),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp":   time.Now().In(time.Local).Format(time.RFC3339),
		"version":     cfg.GetVersion(),
		"competitors": h.reporter.Registry().Count(),
		"session":     string(h.sessions.State()),
		"cache":       h.caches.Sizes(),
	})
}

func (h *Handler) APIGetReport(c *gin.Context) {
	report := h.reporter.Collect(c.Request.Context(), selectedNames(c))
	c.JSON(http.StatusOK, report)
}

func (h *Handler) APIClearCache(c *gin.Context) {
	h.caches.ClearAll()
	c.JSON(http.StatusOK, gin.H{
		"status": "cleared",
		"cache":  h.caches.Sizes(),
	})
}

func (h *Handler) APIGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": string(h.sessions.State())})
}

// APILogin stores the social network session cookies. Blank values are
// ignored with 204 and leave the current session untouched.
func (h *Handler) APILogin(c *gin.Context) {
	status, ok := h.login(c)
	if !ok {
		return
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"state": string(h.sessions.State())})
}

func (h *Handler) APILogout(c *gin.Context) {
	h.sessions.Logout()
	c.JSON(http.StatusOK, gin.H{"state": string(h.sessions.State())})
}

// DashboardRefresh clears every cache from the dashboard form and goes back
// to the dashboard.
func (h *Handler) DashboardRefresh(c *gin.Context) {
	h.caches.ClearAll()
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) DashboardLogin(c *gin.Context) {
	if _, ok := h.login(c); !ok {
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) DashboardLogout(c *gin.Context) {
	h.sessions.Logout()
	c.Redirect(http.StatusSeeOther, "/")
}

// login binds the credentials and updates the session. It writes the error
// response itself and reports false when the request could not be served.
func (h *Handler) login(c *gin.Context) (int, bool) {
	var req sessionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return http.StatusBadRequest, false
	}

	if err := h.sessions.Login(req.AuthToken, req.SessionID); err != nil {
		if errors.Is(err, session.ErrBlankCredentials) {
			slog.Debug("Blank credentials submitted, session unchanged")
			return http.StatusNoContent, true
		}
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return http.StatusInternalServerError, false
	}

	return http.StatusOK, true
}

// selectedNames accepts both ?competitors=a,b and repeated parameters. It
// returns nil when no selection was submitted at all, and an empty slice when
// the dashboard form was sent with every box unchecked.
func selectedNames(c *gin.Context) []string {
	values, submitted := c.GetQueryArray("competitors")
	if _, formSent := c.GetQuery("selection"); formSent {
		submitted = true
	}
	if !submitted {
		return nil
	}

	names := []string{}
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
