package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/ryanbastic/go-chronos/internal/model"
)

// GoogleCertsURL serves Google's current ID token signing keys.
const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

const googleKeysTTL = time.Hour

// IdentityVerifier turns an identity-provider ID token into an identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (model.Identity, error)
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// GoogleVerifier validates Google ID tokens against the published JWKS,
// caching keys for an hour.
type GoogleVerifier struct {
	clientID string
	certsURL string
	client   *http.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

// NewGoogleVerifier accepts tokens whose audience is clientID.
func NewGoogleVerifier(clientID, certsURL string, client *http.Client) *GoogleVerifier {
	if certsURL == "" {
		certsURL = GoogleCertsURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleVerifier{clientID: clientID, certsURL: certsURL, client: client}
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (model.Identity, error) {
	keys, err := g.publicKeys(ctx, false)
	if err != nil {
		return model.Identity{}, err
	}

	unverified, _, err := new(jwt.Parser).ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if _, ok := keys[kid]; !ok {
		// Keys may have rotated since the last fetch.
		if keys, err = g.publicKeys(ctx, true); err != nil {
			return model.Identity{}, err
		}
	}
	key, ok := keys[kid]
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: unknown key id %q", ErrInvalidToken, kid)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !claims.VerifyAudience(g.clientID, true) {
		return model.Identity{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if iss, _ := claims["iss"].(string); iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return model.Identity{}, fmt.Errorf("%w: issuer %q", ErrInvalidToken, iss)
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return model.Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return model.Identity{}, fmt.Errorf("%w: missing sub or email", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return model.Identity{
		Subject:   sub,
		Email:     strings.ToLower(email),
		Name:      name,
		AvatarURL: picture,
	}, nil
}

func (g *GoogleVerifier) publicKeys(ctx context.Context, refresh bool) (map[string]*rsa.PublicKey, error) {
	g.mu.RLock()
	if !refresh && g.keys != nil && time.Now().Before(g.expires) {
		defer g.mu.RUnlock()
		return g.keys, nil
	}
	g.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build certs request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch google certs: status %d", resp.StatusCode)
	}

	var body struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode google certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "" && k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}

	g.mu.Lock()
	g.keys = keys
	g.expires = time.Now().Add(googleKeysTTL)
	g.mu.Unlock()
	return keys, nil
}

// rsaPublicKey builds a key from base64url modulus and exponent.
func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(eb) == 0 || len(eb) > 4 {
		return nil, errors.New("bad exponent length")
	}
	var exp int
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}
