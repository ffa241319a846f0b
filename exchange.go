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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2/internallog"
)

// tokenExchanger turns signed assertions into bearer tokens. It performs
// exactly one POST per Token call and never retries; retry policy belongs to
// the caller-supplied transport or to the caller itself.
type tokenExchanger struct {
	info   *ServiceAccountInfo
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func (te *tokenExchanger) Token(ctx context.Context) (*Token, error) {
	// The clock is read once: iat and the token expiry are both anchored to
	// the refresh start, not to wall-clock at response time.
	now := te.now()
	body, err := CreateServiceAccountRefreshPayload(te.info, url.QueryEscape(GrantTypeJWTBearer), now)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, te.info.TokenURI, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	te.logger.DebugContext(ctx, "token exchange request", "request", internallog.HTTPRequest(req, []byte(body)))
	resp, err := te.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot fetch token: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot fetch token: %w", err)
	}
	te.logger.DebugContext(ctx, "token exchange response", "response", internallog.HTTPResponse(resp, respBody))
	if c := resp.StatusCode; c < 200 || c > 299 {
		return nil, &Error{Response: resp, Body: respBody}
	}
	return ParseServiceAccountRefreshResponse(respBody, now)
}

// ParseServiceAccountRefreshResponse parses a token exchange response body
// into a [Token]. token_type and access_token are required; expires_in is
// optional and treated as 0 when absent, which yields a token that is already
// expired at now and forces a refresh on first real use. Negative values are
// not validated and behave the same way.
func ParseServiceAccountRefreshResponse(body []byte, now time.Time) (*Token, error) {
	var tokenRes struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenRes); err != nil {
		return nil, fmt.Errorf("serviceaccount: could not find all required fields in the refresh response: %w", err)
	}
	if tokenRes.AccessToken == "" || tokenRes.TokenType == "" {
		return nil, errors.New("serviceaccount: could not find all required fields in the refresh response")
	}
	return &Token{
		Value:  tokenRes.AccessToken,
		Type:   tokenRes.TokenType,
		Expiry: now.Add(time.Duration(tokenRes.ExpiresIn) * time.Second),
	}, nil
}
