package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wirus-app/wirus-auth/internal/cache"
	"github.com/wirus-app/wirus-auth/internal/metrics"
)

// ErrKeyFetch marks a failed remote key retrieval.
var ErrKeyFetch = errors.New("token: public key fetch failed")

// KeyResolver turns a platform's public_key field into a usable RSA key. The
// field is either inline PEM or an https URL; fetched PEM is cached. Fetches
// carry no retry and rely on the client's default timeout, so a stalled
// endpoint stalls the request.
type KeyResolver struct {
	HTTP  *http.Client
	Cache cache.Cache
	TTL   time.Duration
}

func NewKeyResolver(c cache.Cache, ttl time.Duration) *KeyResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &KeyResolver{
		HTTP:  http.DefaultClient,
		Cache: c,
		TTL:   ttl,
	}
}

// Resolve returns the platform's verification key.
func (r *KeyResolver) Resolve(ctx context.Context, platformID, publicKey string) (*rsa.PublicKey, error) {
	if publicKey == "" {
		return nil, fmt.Errorf("platform %s has no public key", platformID)
	}
	if !strings.HasPrefix(publicKey, "https://") {
		return ParsePublicKey([]byte(publicKey))
	}

	cacheKey := "pubkey:" + platformID
	if r.Cache != nil {
		if pem, ok := r.Cache.Get(cacheKey); ok {
			return ParsePublicKey(pem)
		}
	}

	pem, err := r.fetch(ctx, publicKey)
	if err != nil {
		metrics.KeyFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.KeyFetches.WithLabelValues("ok").Inc()

	if r.Cache != nil {
		r.Cache.Set(cacheKey, pem, r.TTL)
	}
	return ParsePublicKey(pem)
}

func (r *KeyResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint %s responded with status code %d", ErrKeyFetch, url, resp.StatusCode)
	}
	pem, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	return pem, nil
}
