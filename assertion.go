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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/serviceaccount/internal"
	"cloud.google.com/go/serviceaccount/internal/jwt"
)

// AssertionComponentsFromInfo builds the JWT header and payload JSON for an
// assertion signed with info's key at the clock reading now. It is a pure
// function of its inputs: iat is now as epoch seconds and exp is exactly one
// hour later, regardless of when the assertion is eventually sent.
func AssertionComponentsFromInfo(info *ServiceAccountInfo, now time.Time) (header, payload string, err error) {
	h := &jwt.Header{
		Algorithm: jwt.HeaderAlgRSA256,
		KeyID:     info.PrivateKeyID,
		Type:      jwt.HeaderType,
	}
	iat := now.Unix()
	c := &jwt.Claims{
		Aud:   info.TokenURI,
		Exp:   iat + assertionLifetimeSecs,
		Iat:   iat,
		Iss:   info.ClientEmail,
		Scope: strings.Join(info.Scopes, " "),
		Sub:   info.Subject,
	}
	hb, err := json.Marshal(h)
	if err != nil {
		return "", "", err
	}
	cb, err := json.Marshal(c)
	if err != nil {
		return "", "", err
	}
	return string(hb), string(cb), nil
}

// MakeJWTAssertion signs the given header and payload JSON with the
// PEM-encoded RSA key, producing the three-part assertion
// base64url(header).base64url(payload).base64url(signature). The base64url
// alphabet is unpadded per the JWS convention. A key that cannot be parsed,
// or a signing failure, is fatal and never skipped.
func MakeJWTAssertion(header, payload string, privateKeyPEM []byte) (string, error) {
	pk, err := internal.ParseKey(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("serviceaccount: cannot parse signing key: %w", err)
	}
	ss := base64.RawURLEncoding.EncodeToString([]byte(header)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(payload))
	sum := sha256.Sum256([]byte(ss))
	sig, err := rsa.SignPKCS1v15(rand.Reader, pk, crypto.SHA256, sum[:])
	if err != nil {
		return "", fmt.Errorf("serviceaccount: cannot sign assertion: %w", err)
	}
	return ss + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// CreateServiceAccountRefreshPayload builds the form-encoded body of a token
// exchange request. grantType must already be URL-escaped, conventionally
// url.QueryEscape([GrantTypeJWTBearer]).
//
// grant_type deliberately comes before assertion; the field order is part of
// the wire contract, so the body is assembled by hand rather than through
// url.Values, which would sort the keys.
func CreateServiceAccountRefreshPayload(info *ServiceAccountInfo, grantType string, now time.Time) (string, error) {
	header, payload, err := AssertionComponentsFromInfo(info, now)
	if err != nil {
		return "", err
	}
	assertion, err := MakeJWTAssertion(header, payload, []byte(info.PrivateKey))
	if err != nil {
		return "", err
	}
	return "grant_type=" + grantType + "&assertion=" + assertion, nil
}
