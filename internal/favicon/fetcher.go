package favicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/DeafMist/metasearch-overlay/internal/dedupe"
)

const (
	maxIconBytes       = 64 << 10
	breakerMaxFailures = 5
	breakerTimeout     = 30 * time.Second
	breakerInterval    = time.Minute
)

// ErrNoIcon means the upstream had no usable icon, or the host failed
// recently and is still in the negative cache.
var ErrNoIcon = errors.New("no favicon")

var (
	// errUpstreamStatus is a non-2xx answer from the resolver.
	errUpstreamStatus = errors.New("upstream status")
	// errAborted marks downloads cut short by the caller's context.
	errAborted = errors.New("favicon request aborted")
)

// Icon is a fetched favicon image.
type Icon struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads favicons from the upstream resolvers. Each resolver has
// its own circuit breaker so a failing upstream stops receiving traffic.
type Fetcher struct {
	client   *http.Client
	failures *dedupe.Cache
	breakers map[string]*gobreaker.CircuitBreaker[*Icon]
	log      *slog.Logger
	upstream func(resolver, host string) (string, error)
}

// NewFetcher builds a Fetcher. failures remembers hosts whose lookup failed.
func NewFetcher(client *http.Client, failures *dedupe.Cache, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &Fetcher{
		client:   client,
		failures: failures,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*Icon], len(upstreams)),
		log:      logger,
		upstream: UpstreamURL,
	}
	for name := range upstreams {
		f.breakers[name] = gobreaker.NewCircuitBreaker[*Icon](gobreaker.Settings{
			Name:        "favicon:" + name,
			MaxRequests: 1,
			Interval:    breakerInterval,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerMaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
			// A missing icon is an answer and an aborted request says nothing
			// about the upstream.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNoIcon) || errors.Is(err, errAborted)
			},
		})
	}
	return f
}

// WithUpstream overrides how upstream URLs are built. Intended for tests.
func (f *Fetcher) WithUpstream(fn func(resolver, host string) (string, error)) *Fetcher {
	f.upstream = fn
	return f
}

// Fetch returns the favicon of host from resolver.
func (f *Fetcher) Fetch(ctx context.Context, resolver, host string) (*Icon, error) {
	breaker, ok := f.breakers[resolver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolver, resolver)
	}

	key := resolver + "|" + host
	if f.failures != nil && f.failures.IsSeen(key) {
		return nil, ErrNoIcon
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	icon, err := breaker.Execute(func() (*Icon, error) {
		icon, err := f.download(ctx, resolver, host)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errAborted, ctx.Err())
		}
		return icon, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("resolver %q circuit open: %w", resolver, err)
		}
		// Only a definite answer about the host is remembered.
		if f.failures != nil && (errors.Is(err, ErrNoIcon) || errors.Is(err, errUpstreamStatus)) {
			f.failures.MarkSeen(key)
		}
		return nil, err
	}
	return icon, nil
}

func (f *Fetcher) download(ctx context.Context, resolver, host string) (*Icon, error) {
	target, err := f.upstream(resolver, host)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build favicon request: %w", err)
	}
	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch favicon: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNoIcon
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch favicon: %w %s", errUpstreamStatus, res.Status)
	}

	contentType := res.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNoIcon
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxIconBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read favicon: %w", err)
	}
	if len(data) == 0 || len(data) > maxIconBytes {
		return nil, ErrNoIcon
	}

	f.log.Debug("favicon fetched", slog.String("resolver", resolver), slog.String("host", host))
	return &Icon{Data: data, ContentType: contentType}, nil
}
