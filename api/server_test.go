package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/metasearch-overlay/internal/config"
	"github.com/DeafMist/metasearch-overlay/internal/elasticsearch"
	"github.com/DeafMist/metasearch-overlay/internal/favicon"
	"github.com/DeafMist/metasearch-overlay/internal/logger"
	"github.com/DeafMist/metasearch-overlay/internal/models"
	"github.com/DeafMist/metasearch-overlay/internal/urlfmt"
)

type stubSearcher struct {
	result    *elasticsearch.SearchResult
	err       error
	healthErr error
	params    []elasticsearch.SearchParams
}

func (s *stubSearcher) SearchResults(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSearcher) Health(context.Context) error {
	return s.healthErr
}

type stubFetcher struct {
	icon  *favicon.Icon
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string, string) (*favicon.Icon, error) {
	s.calls++
	return s.icon, s.err
}

func testConfig() *config.API {
	return &config.API{
		Rendering: config.Rendering{
			URLFormatting: urlfmt.ModeFull,
			CacheURL:      "https://web.archive.org/web/",
			Proxy:         config.ResultProxy{Method: http.MethodGet},
		},
		DefaultPage:    20,
		MaxPage:        100,
		FaviconTimeout: time.Second,
		RatePerMinute:  600,
		RateBurst:      100,
	}
}

func testServer(t *testing.T, cfg *config.API, es *stubSearcher, fetcher *stubFetcher) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if fetcher == nil {
		fetcher = &stubFetcher{err: favicon.ErrNoIcon}
	}
	return newServer(logger.Discard(), cfg, es, fetcher).routes(ctx)
}

func sampleResults() *elasticsearch.SearchResult {
	return &elasticsearch.SearchResult{
		Total: 1,
		Items: []models.Result{{
			ID:      "abc",
			URL:     "https://example.org/docs/intro",
			Title:   "Intro",
			Content: "Getting started",
			Engines: []string{"wikipedia"},
		}},
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testServer(t, testConfig(), &stubSearcher{}, nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h = testServer(t, testConfig(), &stubSearcher{healthErr: errors.New("red")}, nil)
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchPageRendersCards(t *testing.T) {
	es := &stubSearcher{result: sampleResults()}
	h := testServer(t, testConfig(), es, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/search?q=intro&size=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	require.Len(t, es.params, 1)
	require.Equal(t, "intro", es.params[0].Query)
	require.Equal(t, 100, es.params[0].Size)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("article.result").Length())
	href, _ := doc.Find("h3 a").Attr("href")
	require.Equal(t, "https://example.org/docs/intro", href)
	require.Equal(t, 0, doc.Find("a.proxied_link").Length())
	require.Equal(t, 1, doc.Find(`input[name="results_on_new_tab"]`).Length())
	require.Equal(t, 0, doc.Find(`input[name="proxify_results"]`).Length())
}

func TestSearchPageWithoutQuerySkipsBackend(t *testing.T) {
	es := &stubSearcher{err: errors.New("unused")}
	h := testServer(t, testConfig(), es, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/search", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, es.params)
}

func TestSearchPageBackendError(t *testing.T) {
	h := testServer(t, testConfig(), &stubSearcher{err: errors.New("boom")}, nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchPageCookieOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Proxy = config.ResultProxy{Method: http.MethodGet, URL: "https://proxy.example/go"}
	h := testServer(t, cfg, &stubSearcher{result: sampleResults()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=intro", nil)
	req.AddCookie(&http.Cookie{Name: "results_on_new_tab", Value: "1"})
	req.AddCookie(&http.Cookie{Name: "proxify_results", Value: "1"})
	req.AddCookie(&http.Cookie{Name: "url_formatting", Value: "host"})
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)

	target, _ := doc.Find("h3 a").Attr("target")
	require.Equal(t, "_blank", target)
	_, checked := doc.Find(`input[name="results_on_new_tab"]`).Attr("checked")
	require.True(t, checked)
	_, checked = doc.Find(`input[name="proxify_results"]`).Attr("checked")
	require.True(t, checked)

	proxied, _ := doc.Find("a.proxied_link").Attr("href")
	require.Equal(t, "https://proxy.example/go?url="+url.QueryEscape("https://example.org/docs/intro"), proxied)
	require.Equal(t, 0, doc.Find(".url_host").Length())
}

func TestProxifyCookieIgnoredWithoutProxy(t *testing.T) {
	h := testServer(t, testConfig(), &stubSearcher{result: sampleResults()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=intro", nil)
	req.AddCookie(&http.Cookie{Name: "proxify_results", Value: "true"})
	rec := serve(h, req)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("a.proxied_link").Length())
}

func TestSearchJSON(t *testing.T) {
	es := &stubSearcher{result: sampleResults()}
	h := testServer(t, testConfig(), es, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/results?q=intro&category=general&from=-4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"url":"https://example.org/docs/intro"`)
	require.Equal(t, "general", es.params[0].Category)
	require.Equal(t, 0, es.params[0].From)
	require.Equal(t, 20, es.params[0].Size)
}

func TestPreferencesSetsCookies(t *testing.T) {
	cfg := testConfig()
	cfg.Proxy.URL = "https://proxy.example/go"
	h := testServer(t, cfg, &stubSearcher{}, nil)

	form := url.Values{"results_on_new_tab": {"on"}, "url_formatting": {"host"}}
	req := httptest.NewRequest(http.MethodPost, "/preferences", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(h, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/search", rec.Header().Get("Location"))

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	require.Equal(t, map[string]string{
		"results_on_new_tab": "1",
		"proxify_results":    "0",
		"url_formatting":     "host",
	}, cookies)
}

func TestFaviconEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.FaviconResolver = "google"
	fetcher := &stubFetcher{icon: &favicon.Icon{Data: []byte("\x89PNG"), ContentType: "image/png"}}
	h := testServer(t, cfg, &stubSearcher{}, fetcher)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/favicon?resolver=google&authority=example.org", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG", rec.Body.String())
	require.Equal(t, 1, fetcher.calls)

	for _, target := range []string{
		"/favicon?resolver=duckduckgo&authority=example.org",
		"/favicon?resolver=google",
		"/favicon?resolver=google&authority=example.org%2Fpath",
	} {
		rec = serve(h, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	require.Equal(t, 1, fetcher.calls)
}

func TestFaviconMissingIcon(t *testing.T) {
	cfg := testConfig()
	cfg.FaviconResolver = "google"
	h := testServer(t, cfg, &stubSearcher{}, &stubFetcher{err: favicon.ErrNoIcon})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/favicon?resolver=google&authority=example.org", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RatePerMinute = 1
	cfg.RateBurst = 2
	h := testServer(t, cfg, &stubSearcher{}, nil)

	for i := 0; i < 2; i++ {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/search", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/search", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/search", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	require.Equal(t, http.StatusOK, serve(h, other).Code)

	require.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}
