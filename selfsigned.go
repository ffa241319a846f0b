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
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/serviceaccount/internal"
	"cloud.google.com/go/serviceaccount/internal/jwt"
)

// NewSelfSignedTokenProvider returns a [TokenProvider] whose bearer tokens
// are themselves signed JWTs, skipping the token exchange round trip
// entirely. Services that accept self-signed JWTs validate the signature
// against the service account's registered public key.
//
// The JWT carries the account email as both issuer and subject, the
// configured scopes, and [Options.Audience] when set. Tokens live for one
// hour and are cached until then.
func NewSelfSignedTokenProvider(info *ServiceAccountInfo, opts *Options) (TokenProvider, error) {
	if info == nil {
		return nil, errors.New("serviceaccount: info must be provided")
	}
	info = opts.apply(info)
	key, err := internal.ParseKey([]byte(info.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot parse private key of %s: %w", info.ClientEmail, err)
	}
	audience := ""
	if opts != nil {
		audience = opts.Audience
	}
	tp := &selfSignedTokenProvider{
		info:     info,
		key:      key,
		audience: audience,
		logger:   opts.logger(),
		now:      opts.clock(),
	}
	return NewCachedTokenProvider(tp, &CachedTokenProviderOptions{
		ExpireEarly: opts.expireEarly(),
		Clock:       opts.clock(),
	}), nil
}

type selfSignedTokenProvider struct {
	info     *ServiceAccountInfo
	key      *rsa.PrivateKey
	audience string
	logger   *slog.Logger
	now      func() time.Time
}

func (tp *selfSignedTokenProvider) Token(ctx context.Context) (*Token, error) {
	iat := tp.now()
	exp := iat.Add(time.Duration(assertionLifetimeSecs) * time.Second)
	h := &jwt.Header{
		Algorithm: jwt.HeaderAlgRSA256,
		KeyID:     tp.info.PrivateKeyID,
		Type:      jwt.HeaderType,
	}
	c := &jwt.Claims{
		Aud:   tp.audience,
		Exp:   exp.Unix(),
		Iat:   iat.Unix(),
		Iss:   tp.info.ClientEmail,
		Scope: strings.Join(tp.info.Scopes, " "),
		Sub:   tp.info.ClientEmail,
	}
	tok, err := jwt.EncodeJWS(h, c, tp.key)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot sign self-signed JWT: %w", err)
	}
	tp.logger.DebugContext(ctx, "created self-signed JWT", "issuer", tp.info.ClientEmail, "expiry", exp)
	return &Token{Value: tok, Type: "Bearer", Expiry: exp}, nil
}
