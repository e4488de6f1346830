package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/teranos/labelmaker/errors"
	"github.com/teranos/labelmaker/internal/httpclient"
)

// cacheTTL is how long a resolved signing key is trusted before a normal
// (non-forced) resolve will re-fetch it.
const cacheTTL = time.Hour

// didDocument is the subset of a DID document this resolver cares about.
type didDocument struct {
	ID                 string               `json:"id"`
	VerificationMethod []verificationMethod `json:"verificationMethod"`
}

type verificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

type cacheEntry struct {
	pub       indigocrypto.PublicKey
	resolvedAt time.Time
}

// Resolver resolves a DID to its current atproto signing public key,
// caching positive results with a one-hour TTL.
type Resolver struct {
	client *httpclient.SaferClient

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver creates a DID resolver using an SSRF-hardened HTTP client
// with the given request timeout.
func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		client: httpclient.NewSaferClient(timeout),
		cache:  make(map[string]cacheEntry),
	}
}

// PrimeCache installs pub as the resolved signing key for did without a
// network round trip, as if it had just been freshly resolved. Used by
// tests and by deployments that pin a known issuer's key out of band.
func (r *Resolver) PrimeCache(did string, pub indigocrypto.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[did] = cacheEntry{pub: pub, resolvedAt: time.Now()}
}

// ResolveSigningKey returns the atproto signing public key for did. If
// forceRefresh is false and a cache entry is younger than cacheTTL, the
// cached key is returned without a network round trip.
func (r *Resolver) ResolveSigningKey(ctx context.Context, did string, forceRefresh bool) (indigocrypto.PublicKey, error) {
	if !forceRefresh {
		r.mu.Lock()
		entry, ok := r.cache[did]
		r.mu.Unlock()
		if ok && time.Since(entry.resolvedAt) < cacheTTL {
			return entry.pub, nil
		}
	}

	doc, err := r.fetchDocument(ctx, did)
	if err != nil {
		return nil, err
	}

	pub, err := extractSigningKey(did, doc)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[did] = cacheEntry{pub: pub, resolvedAt: time.Now()}
	r.mu.Unlock()

	return pub, nil
}

func (r *Resolver) fetchDocument(ctx context.Context, did string) (*didDocument, error) {
	url, err := documentURL(did)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build DID document request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch DID document for %s", did)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("DID document fetch for %s returned status %d", did, resp.StatusCode)
	}

	var doc didDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "decode DID document for %s", did)
	}
	return &doc, nil
}

// documentURL resolves a DID to the URL its document is published at.
func documentURL(did string) (string, error) {
	switch {
	case strings.HasPrefix(did, "did:plc:"):
		return "https://plc.directory/" + did, nil
	case strings.HasPrefix(did, "did:web:"):
		host := strings.TrimPrefix(did, "did:web:")
		return fmt.Sprintf("https://%s/.well-known/did.json", host), nil
	default:
		return "", errors.Newf("unsupported DID method: %s", did)
	}
}

// extractSigningKey finds the atproto verification method in doc and
// decodes its public key.
func extractSigningKey(did string, doc *didDocument) (indigocrypto.PublicKey, error) {
	wantIDs := map[string]bool{
		did + "#atproto": true,
		"#atproto":       true,
	}

	for _, vm := range doc.VerificationMethod {
		if !wantIDs[vm.ID] {
			continue
		}
		if vm.PublicKeyMultibase == "" {
			return nil, errors.Newf("verification method %s has no publicKeyMultibase", vm.ID)
		}

		keyType, keyBytes, err := DecodeMultikey(vm.PublicKeyMultibase)
		if err != nil {
			return nil, errors.Wrapf(err, "decode signing key for %s", did)
		}

		didKey, err := EncodeDIDKey(keyType, keyBytes)
		if err != nil {
			return nil, err
		}

		pub, err := indigocrypto.ParsePublicDIDKey(didKey)
		if err != nil {
			return nil, errors.Wrapf(err, "parse signing key for %s", did)
		}
		return pub, nil
	}

	return nil, errors.Newf("no atproto verification method found in DID document for %s", did)
}
