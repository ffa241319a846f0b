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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/serviceaccount/internal"
	"github.com/googleapis/gax-go/v2/internallog"
)

// Options configures [Credentials] built from a [ServiceAccountInfo]. The
// zero value is usable; a nil *Options behaves like the zero value.
type Options struct {
	// Scopes overrides the scopes carried by the info. Optional.
	Scopes []string
	// Subject is the user email used for domain-wide delegation. When set it
	// becomes the "sub" claim of every assertion. Optional.
	Subject string
	// TokenURI overrides the token exchange endpoint carried by the info.
	// Optional.
	TokenURI string
	// Audience is the "aud" claim of self-signed JWTs. Only used by
	// [NewSelfSignedTokenProvider]. Optional.
	Audience string
	// Client is used to make token exchange requests. Defaults to a clone of
	// the default transport with a 30s timeout. Timeouts and cancellation are
	// the client's responsibility; this package never retries an exchange.
	Client *http.Client
	// Logger to log the request and response of token exchanges at debug
	// level. Defaults to a no-op logger. Optional.
	Logger *slog.Logger
	// ExpireEarly configures how early before expiry a cached token stops
	// being handed out. Defaults to zero. Optional.
	ExpireEarly time.Duration
	// Clock provides the current time for assertion timestamps and expiry
	// checks. Defaults to [time.Now]. Intended for tests. Optional.
	Clock func() time.Time
}

func (o *Options) client() *http.Client {
	if o != nil && o.Client != nil {
		return o.Client
	}
	return internal.CloneDefaultClient()
}

func (o *Options) logger() *slog.Logger {
	if o == nil {
		return internallog.New(nil)
	}
	return internallog.New(o.Logger)
}

func (o *Options) clock() func() time.Time {
	if o == nil || o.Clock == nil {
		return timeNow
	}
	return o.Clock
}

func (o *Options) expireEarly() time.Duration {
	if o == nil {
		return 0
	}
	return o.ExpireEarly
}

// apply copies the option overrides onto a private copy of info, which is
// immutable from then on.
func (o *Options) apply(info *ServiceAccountInfo) *ServiceAccountInfo {
	cp := *info
	cp.Scopes = append([]string(nil), info.Scopes...)
	if o == nil {
		return &cp
	}
	if len(o.Scopes) > 0 {
		cp.Scopes = append([]string(nil), o.Scopes...)
	}
	if o.Subject != "" {
		cp.Subject = o.Subject
	}
	if o.TokenURI != "" {
		cp.TokenURI = o.TokenURI
	}
	return &cp
}

// Credentials authenticates requests on behalf of one service account. It
// caches the bearer token obtained from the most recent exchange and refreshes
// it when expired, and can sign arbitrary blobs with the account's key.
//
// A Credentials owns its cached token exclusively; it is safe for concurrent
// use, with refreshes serialized so at most one exchange is in flight at a
// time.
type Credentials struct {
	info *ServiceAccountInfo
	// key is parsed once at construction and read-only afterwards.
	key *rsa.PrivateKey
	tp  TokenProvider
}

// NewCredentials builds [Credentials] from a parsed key, typically obtained
// from [ParseServiceAccountCredentials] or [ParseServiceAccountP12File].
func NewCredentials(info *ServiceAccountInfo, opts *Options) (*Credentials, error) {
	if info == nil {
		return nil, errors.New("serviceaccount: info must be provided")
	}
	info = opts.apply(info)
	key, err := internal.ParseKey([]byte(info.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot parse private key of %s: %w", info.ClientEmail, err)
	}
	exchanger := &tokenExchanger{
		info:   info,
		client: opts.client(),
		logger: opts.logger(),
		now:    opts.clock(),
	}
	return &Credentials{
		info: info,
		key:  key,
		tp: NewCachedTokenProvider(exchanger, &CachedTokenProviderOptions{
			ExpireEarly: opts.expireEarly(),
			Clock:       opts.clock(),
		}),
	}, nil
}

// NewCredentialsFromJSON parses a JSON key file and builds [Credentials] from
// it. source labels the origin of the data in parse errors.
func NewCredentialsFromJSON(data []byte, source string, opts *Options) (*Credentials, error) {
	info, err := ParseServiceAccountCredentials(data, source, "")
	if err != nil {
		return nil, err
	}
	return NewCredentials(info, opts)
}

// NewCredentialsFromP12File loads a PKCS#12 key file and builds [Credentials]
// from it.
func NewCredentialsFromP12File(path string, opts *Options) (*Credentials, error) {
	info, err := ParseServiceAccountP12File(path)
	if err != nil {
		return nil, err
	}
	return NewCredentials(info, opts)
}

// NewCredentialsFromFile loads a key file in either format: JSON content is
// parsed as a JSON key, anything else as PKCS#12.
func NewCredentialsFromFile(path string, opts *Options) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot read key file %q: %w", path, err)
	}
	if json.Valid(data) {
		return NewCredentialsFromJSON(data, path, opts)
	}
	return NewCredentialsFromP12File(path, opts)
}

// Token returns the cached bearer token, refreshing it first if it is absent
// or expired. Credentials satisfies [TokenProvider].
func (c *Credentials) Token(ctx context.Context) (*Token, error) {
	return c.tp.Token(ctx)
}

// AuthorizationHeader returns the ready-to-use header line
// "Authorization: <token_type> <access_token>" for the current token,
// refreshing it first if needed. When a refresh fails the error is returned
// and the previously cached token, if any, is kept for later calls.
func (c *Credentials) AuthorizationHeader(ctx context.Context) (string, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AuthorizationHeader(), nil
}

// AccountEmail returns the service account's email address.
func (c *Credentials) AccountEmail() string {
	return c.info.ClientEmail
}

// KeyID returns the identifier of the loaded private key. Empty for keys
// loaded from PKCS#12 files.
func (c *Credentials) KeyID() string {
	return c.info.PrivateKeyID
}

// SignBlob computes the RSA-SHA256 signature of blob using the account's
// private key and returns the raw signature bytes.
//
// signingAccount selects whose key should sign: "" or "default" means the
// loaded credential's own account. Service account credentials can only
// self-sign, so any other value must equal [Credentials.AccountEmail] or the
// call fails.
func (c *Credentials) SignBlob(signingAccount string, blob []byte) ([]byte, error) {
	if signingAccount != "" && signingAccount != "default" && signingAccount != c.info.ClientEmail {
		return nil, fmt.Errorf("serviceaccount: current credentials cannot sign blobs for %s", signingAccount)
	}
	sum := sha256.Sum256(blob)
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA256, sum[:])
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot sign blob: %w", err)
	}
	return sig, nil
}
