package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/metasearch-overlay/internal/config"
	"github.com/DeafMist/metasearch-overlay/internal/elasticsearch"
	"github.com/DeafMist/metasearch-overlay/internal/favicon"
	"github.com/DeafMist/metasearch-overlay/internal/links"
	"github.com/DeafMist/metasearch-overlay/internal/render"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

const (
	faviconPath      = "/favicon"
	preferenceMaxAge = 365 * 24 * 60 * 60
)

type resultSearcher interface {
	SearchResults(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type faviconFetcher interface {
	Fetch(ctx context.Context, resolver, host string) (*favicon.Icon, error)
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	es       resultSearcher
	favicons faviconFetcher
	adapter  *favicon.Adapter
}

type errorResponse struct {
	Error string `json:"error"`
}

func newServer(log *slog.Logger, cfg *config.API, es resultSearcher, favicons faviconFetcher) *server {
	return &server{
		log:      log,
		cfg:      cfg,
		es:       es,
		favicons: favicons,
		adapter:  favicon.NewAdapter(faviconPath),
	}
}

func (s *server) routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get(faviconPath, s.handleFavicon)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(ctx, s.cfg.RatePerMinute, s.cfg.RateBurst))
		r.Get("/", s.handleSearchPage)
		r.Get("/search", s.handleSearchPage)
		r.Post("/preferences", s.handlePreferences)
		r.Get("/api/results", s.handleSearchJSON)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.es.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) searchParams(r *http.Request) elasticsearch.SearchParams {
	q := r.URL.Query()
	return elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Engine:   strings.TrimSpace(q.Get("engine")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
	}
}

func (s *server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := s.es.SearchResults(ctx, s.searchParams(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	params := s.searchParams(r)
	page := render.Page{Query: params.Query}

	if params.Query != "" || params.Category != "" || params.Engine != "" {
		result, err := s.es.SearchResults(ctx, params)
		if err != nil {
			s.log.Error("search results",
				slog.Any("err", err),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			http.Error(w, "search backend unavailable", http.StatusBadGateway)
			return
		}
		page.Total = result.Total
		page.Results = result.Items
	}

	rctx := s.renderContext(r)
	page.Preferences = []render.Preference{{Name: "results_on_new_tab", Checked: rctx.ResultsOnNewTab}}
	if s.cfg.Proxy.URL != "" {
		page.Preferences = append(page.Preferences, render.Preference{Name: "proxify_results", Checked: rctx.ProxifyResults})
	}

	var buf bytes.Buffer
	if err := render.New(rctx).WritePage(&buf, page); err != nil {
		s.log.Error("render page", slog.Any("err", err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// renderContext combines the configured defaults with the visitor's
// preference cookies.
func (s *server) renderContext(r *http.Request) render.Context {
	rc := s.cfg.Rendering
	ctx := render.Context{
		ResultsOnNewTab: rc.ResultsOnNewTab,
		FaviconResolver: rc.FaviconResolver,
		Favicons:        s.adapter,
		URLFormatting:   rc.URLFormatting,
		ProxifyResults:  rc.Proxy.Enabled,
		ProxyMethod:     rc.Proxy.Method,
		ProxyURL:        rc.Proxy.URL,
		ProxyParams:     rc.Proxy.Params,
		CacheURL:        rc.CacheURL,
		Translator:      render.English,
	}

	if rc.Proxy.Key != "" && rc.Proxy.Method != http.MethodPost {
		ctx.ProxyTransform = links.QueryProxifier{Endpoint: rc.Proxy.URL, Key: rc.Proxy.Key}
	}
	if rc.ImageProxyURL != "" {
		ctx.ImageProxy = links.QueryProxifier{Endpoint: rc.ImageProxyURL, Key: rc.ImageProxyKey}
	}

	if v, ok := cookieBool(r, "results_on_new_tab"); ok {
		ctx.ResultsOnNewTab = v
	}
	if c, err := r.Cookie("url_formatting"); err == nil {
		ctx.URLFormatting = urlfmt.ParseMode(c.Value)
	}
	if rc.Proxy.URL != "" {
		if v, ok := cookieBool(r, "proxify_results"); ok {
			ctx.ProxifyResults = v
		}
	}
	return ctx
}

func (s *server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	toggles := []string{"results_on_new_tab"}
	if s.cfg.Proxy.URL != "" {
		toggles = append(toggles, "proxify_results")
	}
	for _, name := range toggles {
		value := "0"
		if r.PostForm.Get(name) != "" {
			value = "1"
		}
		setPreference(w, name, value)
	}
	if mode := r.PostForm.Get("url_formatting"); mode != "" {
		setPreference(w, "url_formatting", string(urlfmt.ParseMode(mode)))
	}

	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

func (s *server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	resolver := r.URL.Query().Get("resolver")
	host := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("authority")))

	// Only the configured resolver is served so the endpoint is not an open proxy.
	if resolver == "" || resolver != s.cfg.FaviconResolver || host == "" || strings.ContainsAny(host, "/?#@ ") {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.FaviconTimeout)
	defer cancel()

	icon, err := s.favicons.Fetch(ctx, resolver, host)
	if err != nil {
		if !errors.Is(err, favicon.ErrNoIcon) {
			s.log.Debug("favicon unavailable",
				slog.String("resolver", resolver),
				slog.String("host", host),
				slog.Any("err", err),
			)
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", icon.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Data)
}

func setPreference(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   preferenceMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieBool(r *http.Request, name string) (bool, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return false, false
	}
	v, err := strconv.ParseBool(c.Value)
	if err != nil {
		return false, false
	}
	return v, true
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
