package resolve

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	lru "github.com/hashicorp/golang-lru/v2"
	circuit "github.com/rubyist/circuitbreaker"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/pomstack/pkg/cache"
	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/observability"
	"github.com/matzehuels/pomstack/pkg/pom"
)

// Downloader fetches a descriptor by coordinate from an ordered repository
// list. Implementations must be safe for concurrent use and should cache
// results, since diamond dependency graphs request the same coordinate
// repeatedly. Failures are always *DownloadError.
type Downloader interface {
	Download(ctx context.Context, gav pom.GAV, repos []pom.Repository) (*pom.Project, error)
}

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
	defaultMemoSize   = 512
	defaultCacheTTL   = 24 * time.Hour
)

// HTTPDownloader downloads descriptors over HTTP with retry, per-host
// circuit breaking and single-flight deduplication. Parsed descriptors are
// memoized per (coordinate, repository set); raw bytes can additionally be
// cached in a pluggable byte cache shared across runs.
type HTTPDownloader struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration

	bytes    cache.Cache
	cacheTTL time.Duration

	memo  *lru.Cache[string, *pom.Project]
	group singleflight.Group

	breakersMu sync.RWMutex
	breakers   map[string]*circuit.Breaker

	localMu sync.RWMutex
	local   map[pom.GroupArtifact]*pom.Project
}

// DownloaderOption configures an HTTPDownloader.
type DownloaderOption func(*HTTPDownloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) { d.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) { d.userAgent = ua }
}

// WithMaxRetries sets the maximum retry attempts per repository.
func WithMaxRetries(n int) DownloaderOption {
	return func(d *HTTPDownloader) { d.maxRetries = n }
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(delay time.Duration) DownloaderOption {
	return func(d *HTTPDownloader) { d.baseDelay = delay }
}

// WithByteCache stores raw descriptor bytes in the given cache, keyed by
// URL, so repeated runs skip the network entirely.
func WithByteCache(c cache.Cache, ttl time.Duration) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.bytes = c
		if ttl > 0 {
			d.cacheTTL = ttl
		}
	}
}

// WithLocalProjects seeds descriptors that are known without downloading,
// typically the descriptors of the multi-module tree being resolved.
func WithLocalProjects(projects ...*pom.Project) DownloaderOption {
	return func(d *HTTPDownloader) {
		for _, p := range projects {
			d.local[p.GAV.GroupArtifact()] = p
		}
	}
}

// NewHTTPDownloader creates a downloader with the given options.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	memo, _ := lru.New[string, *pom.Project](defaultMemoSize)
	d := &HTTPDownloader{
		client:     &http.Client{Timeout: defaultTimeout},
		userAgent:  "pomstack",
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		cacheTTL:   defaultCacheTTL,
		memo:       memo,
		breakers:   make(map[string]*circuit.Breaker),
		local:      make(map[pom.GroupArtifact]*pom.Project),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterLocal adds a descriptor to the local registry. Local descriptors
// shadow remote ones by group/artifact and are consulted before the network,
// mirroring how a multi-module tree's own descriptors resolve each other.
func (d *HTTPDownloader) RegisterLocal(p *pom.Project) {
	d.localMu.Lock()
	defer d.localMu.Unlock()
	d.local[p.GAV.GroupArtifact()] = p
}

// Download fetches and parses the descriptor for gav, trying each repository
// in order. Identical concurrent requests collapse into a single fetch.
func (d *HTTPDownloader) Download(ctx context.Context, gav pom.GAV, repos []pom.Repository) (*pom.Project, error) {
	if local := d.lookupLocal(gav); local != nil {
		return local, nil
	}
	if gav.Artifact == "" {
		return nil, NewDownloadError(gav, errors.New(errors.ErrCodeMissingField, "coordinate has no artifactId"))
	}
	if gav.Group == "" || gav.Version == "" {
		return nil, NewDownloadError(gav, errors.New(errors.ErrCodeInvalidCoordinate,
			"cannot download %s: group and version must be known", gav))
	}

	key := gav.String() + "@" + repoFingerprint(repos)
	v, err, _ := d.group.Do(key, func() (any, error) {
		if p, ok := d.memo.Get(key); ok {
			observability.Cache().OnCacheHit(ctx, "descriptor")
			return p, nil
		}
		observability.Cache().OnCacheMiss(ctx, "descriptor")

		p, err := d.download(ctx, gav, repos)
		if err != nil {
			return nil, err
		}
		d.memo.Add(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pom.Project), nil
}

func (d *HTTPDownloader) lookupLocal(gav pom.GAV) *pom.Project {
	d.localMu.RLock()
	defer d.localMu.RUnlock()
	p := d.local[gav.GroupArtifact()]
	if p != nil && (gav.Version == "" || p.GAV.Version == gav.Version) {
		return p
	}
	return nil
}

func (d *HTTPDownloader) download(ctx context.Context, gav pom.GAV, repos []pom.Repository) (*pom.Project, error) {
	started := time.Now()
	observability.Resolve().OnDownloadStart(ctx, gav.String())

	var causes []string
	for _, repo := range repos {
		fetchURL := descriptorURL(repo, gav)
		data, err := d.fetch(ctx, fetchURL)
		if err != nil {
			causes = append(causes, fmt.Sprintf("%s: %s", repo.URL, errors.UserMessage(err)))
			continue
		}
		p, err := pom.Parse(data)
		if err != nil {
			// A corrupt descriptor in one repository does not shadow a good
			// one in the next.
			causes = append(causes, fmt.Sprintf("%s: %s", repo.URL, errors.UserMessage(err)))
			continue
		}
		observability.Resolve().OnDownloadComplete(ctx, gav.String(), time.Since(started), nil)
		return p, nil
	}

	err := NewDownloadError(gav, errors.New(errors.ErrCodeDownload,
		"unable to download descriptor. Tried repositories:\n%s", strings.Join(causes, "\n")))
	observability.Resolve().OnDownloadComplete(ctx, gav.String(), time.Since(started), err)
	return nil, err
}

// fetch retrieves one URL with retries and circuit breaking. Not-found is
// returned immediately; transient failures retry with exponential backoff
// and 10% jitter.
func (d *HTTPDownloader) fetch(ctx context.Context, fetchURL string) ([]byte, error) {
	if d.bytes != nil {
		if data, ok, _ := d.bytes.Get(ctx, "pom:"+fetchURL); ok {
			observability.Cache().OnCacheHit(ctx, "bytes")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "bytes")
	}

	host := hostOf(fetchURL)
	breaker := d.breaker(host)
	if !breaker.Ready() {
		return nil, errors.New(errors.ErrCodeNetwork, "circuit breaker open for %s", host)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "fetch cancelled")
			case <-time.After(retryDelay(d.baseDelay, attempt)):
			}
		}

		data, retriable, err := d.fetchOnce(ctx, fetchURL)
		if err == nil {
			breaker.Success()
			if d.bytes != nil {
				_ = d.bytes.Set(ctx, "pom:"+fetchURL, data, d.cacheTTL)
				observability.Cache().OnCacheSet(ctx, "bytes", len(data))
			}
			return data, nil
		}
		if !retriable {
			// Not-found is a healthy response from the repository's point of
			// view; it must not trip the breaker.
			if errors.Is(err, errors.ErrCodeNotFound) {
				breaker.Success()
			} else {
				breaker.Fail()
			}
			return nil, err
		}
		breaker.Fail()
		lastErr = err
	}
	return nil, lastErr
}

// fetchOnce performs a single HTTP GET. The boolean reports whether the
// failure is worth retrying.
func (d *HTTPDownloader) fetchOnce(ctx context.Context, fetchURL string) (data []byte, retriable bool, err error) {
	method, host, path := "GET", hostOf(fetchURL), pathOf(fetchURL)
	observability.HTTP().OnRequest(ctx, method, host, path)
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, fetchURL, nil)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid repository URL %s", fetchURL)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, method, host, path, err)
		return nil, true, errors.Wrap(errors.ErrCodeNetwork, err, "request failed")
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(started))

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, errors.Wrap(errors.ErrCodeNetwork, err, "reading response body")
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errors.New(errors.ErrCodeNotFound, "not found (HTTP 404)")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errors.New(errors.ErrCodeRateLimited, "rate limited (HTTP 429)")
	case resp.StatusCode >= 500:
		return nil, true, errors.New(errors.ErrCodeNetwork, "server error (HTTP %d)", resp.StatusCode)
	default:
		return nil, false, errors.New(errors.ErrCodeNetwork, "unexpected status (HTTP %d)", resp.StatusCode)
	}
}

// breaker returns or creates the circuit breaker for a repository host.
// Breakers trip after 5 consecutive failures and recover on an exponential
// schedule.
func (d *HTTPDownloader) breaker(host string) *circuit.Breaker {
	d.breakersMu.RLock()
	b, ok := d.breakers[host]
	d.breakersMu.RUnlock()
	if ok {
		return b
	}

	d.breakersMu.Lock()
	defer d.breakersMu.Unlock()
	if b, ok := d.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	d.breakers[host] = b
	return b
}

// descriptorURL builds the repository URL for a coordinate's descriptor:
// <repo>/<group with dots as slashes>/<artifact>/<version>/<artifact>-<version>.pom
func descriptorURL(repo pom.Repository, gav pom.GAV) string {
	base := strings.TrimRight(repo.URL, "/")
	group := strings.ReplaceAll(gav.Group, ".", "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s.pom", base, group, gav.Artifact, gav.Version, gav.Artifact, gav.Version)
}

// repoFingerprint hashes the ordered repository URLs so that memoization is
// keyed by (coordinate, repository set).
func repoFingerprint(repos []pom.Repository) string {
	urls := make([]string, len(repos))
	for i, r := range repos {
		urls[i] = r.URL
	}
	return cache.Hash([]byte(strings.Join(urls, "\n")))[:16]
}

// retryDelay computes exponential backoff with 10% jitter to avoid
// thundering herds against a recovering repository.
func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return rawURL
}

func pathOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return ""
}
