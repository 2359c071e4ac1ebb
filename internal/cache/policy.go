package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Policy decides whether an adapter's reads go through a Store. The zero
// value, or a Policy without an expiry, is a pass-through.
type Policy struct {
	store  Store
	expiry time.Time
}

// NewPolicy binds a policy to store. A nil store keeps every call uncached.
func NewPolicy(store Store) Policy {
	return Policy{store: store}
}

// CacheUntil enables caching until expiry.
func (p *Policy) CacheUntil(expiry time.Time) {
	p.expiry = expiry
}

// WithoutCache disables caching.
func (p *Policy) WithoutCache() {
	p.expiry = time.Time{}
}

// Enabled reports whether calls will consult the store.
func (p *Policy) Enabled() bool {
	return p.store != nil && !p.expiry.IsZero()
}

// Expiry returns the configured expiry, zero when disabled.
func (p *Policy) Expiry() time.Time {
	return p.expiry
}

// Fetch runs compute through the store keyed by prefix and args, or directly
// when caching is disabled.
func (p *Policy) Fetch(ctx context.Context, prefix string, args any, compute ComputeFunc) ([]byte, error) {
	if !p.Enabled() {
		return compute(ctx)
	}
	key, err := Key(prefix, args)
	if err != nil {
		return nil, err
	}
	return p.store.Remember(ctx, key, p.expiry, compute)
}

// Key derives a deterministic key: prefix, a colon, and the md5 of the JSON
// encoding of args. Map keys are encoded in sorted order, so equal argument
// sets always hash the same. A nil args yields the bare prefix.
func Key(prefix string, args any) (string, error) {
	if args == nil {
		return prefix, nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("cache: encode key arguments: %w", err)
	}
	sum := md5.Sum(encoded)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}
