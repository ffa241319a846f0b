// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serviceaccount

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	// GoogleOAuthTokenEndpoint is the token exchange endpoint used when a key
	// file does not carry a token_uri and no override is configured.
	GoogleOAuthTokenEndpoint = "https://oauth2.googleapis.com/token"
	// ScopeCloudPlatform is the scope requested when none are configured.
	ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
	// GrantTypeJWTBearer is the OAuth2 grant type of the JWT bearer flow. It
	// is sent URL-escaped in token exchange request bodies.
	GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetimeSecs is the exact exp - iat distance claimed by every
	// assertion this package signs.
	assertionLifetimeSecs int64 = 3600
)

// for testing
var timeNow = time.Now

// Token is a bearer token obtained from a token exchange, or a self-signed
// JWT standing in for one. All fields are considered read-only; a refresh
// produces a new Token, never mutates one in place.
type Token struct {
	// Value is the token used to authorize requests, without the type prefix.
	Value string
	// Type is the token type, e.g. "Bearer".
	Type string
	// Expiry is the instant the token stops being usable. A token with
	// Expiry at or before the current clock reading is never handed out.
	Expiry time.Time
}

// IsValidAt reports whether the token is usable at the instant now. A token
// is valid strictly before its expiry, never at it.
func (t *Token) IsValidAt(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.Expiry)
}

// AuthorizationHeader returns the ready-to-use header line for the token,
// in the form "Authorization: <type> <value>".
func (t *Token) AuthorizationHeader() string {
	return fmt.Sprintf("Authorization: %s %s", t.Type, t.Value)
}

// TokenProvider specifies an interface for anything that can return a token.
type TokenProvider interface {
	// Token returns a Token or an error. The returned Token must not be
	// modified. The context provided must be sent along to any requests that
	// are made in the implementing code.
	Token(context.Context) (*Token, error)
}

// CachedTokenProviderOptions provides options for configuring a cached
// [TokenProvider].
type CachedTokenProviderOptions struct {
	// ExpireEarly configures the amount of time before a token expires that
	// it should stop being handed out. Defaults to zero: a token is reused
	// until the instant it expires.
	ExpireEarly time.Duration
	// Clock provides the current time. Defaults to [time.Now]. Intended for
	// tests that need deterministic expiry behavior.
	Clock func() time.Time
}

func (ctpo *CachedTokenProviderOptions) expireEarly() time.Duration {
	if ctpo == nil {
		return 0
	}
	return ctpo.ExpireEarly
}

func (ctpo *CachedTokenProviderOptions) clock() func() time.Time {
	if ctpo == nil || ctpo.Clock == nil {
		return timeNow
	}
	return ctpo.Clock
}

// NewCachedTokenProvider wraps a [TokenProvider] to cache the last token
// returned by the underlying provider, invalidating it on expiry.
//
// Concurrent callers are serialized: the lock is held across the
// check-then-refresh sequence, so at most one refresh is in flight per cache
// at a time. A failed refresh leaves the previously cached token untouched.
func NewCachedTokenProvider(tp TokenProvider, opts *CachedTokenProviderOptions) TokenProvider {
	if ctp, ok := tp.(*cachedTokenProvider); ok {
		return ctp
	}
	return &cachedTokenProvider{
		tp:          tp,
		expireEarly: opts.expireEarly(),
		now:         opts.clock(),
	}
}

type cachedTokenProvider struct {
	tp          TokenProvider
	expireEarly time.Duration
	now         func() time.Time

	mu          sync.Mutex
	cachedToken *Token
}

func (c *cachedTokenProvider) Token(ctx context.Context) (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedToken.IsValidAt(c.now().Add(c.expireEarly)) {
		return c.cachedToken, nil
	}
	t, err := c.tp.Token(ctx)
	if err != nil {
		return nil, err
	}
	c.cachedToken = t
	return t, nil
}

// Error is an error returned by a token exchange. It holds the full response
// for debugging.
type Error struct {
	// Response is the HTTP response associated with error. The body will
	// always be already closed and consumed.
	Response *http.Response
	// Body is the HTTP response body.
	Body []byte
	// Err is the underlying wrapped error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("serviceaccount: cannot fetch token: %v\nResponse: %s", e.Response.StatusCode, e.Body)
}

// Temporary reports whether the error is considered temporary and may be able
// to be retried. This package never retries; the classification is for
// callers that implement their own retry policy.
func (e *Error) Temporary() bool {
	if e.Response == nil {
		return false
	}
	sc := e.Response.StatusCode
	return sc == http.StatusInternalServerError ||
		sc == http.StatusServiceUnavailable ||
		sc == http.StatusRequestTimeout ||
		sc == http.StatusTooManyRequests
}

func (e *Error) Unwrap() error {
	return e.Err
}
