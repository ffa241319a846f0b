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

// Package jwt implements the subset of the JWT/JWS spec needed to sign and
// verify the RS256 assertions used in service account token flows.
package jwt

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// HeaderAlgRSA256 is the RS256 signing algorithm identifier.
	HeaderAlgRSA256 string = "RS256"
	// HeaderType is the standard JWT header type.
	HeaderType string = "JWT"
)

// Header is the header of a JWT.
//
// Fields are declared in lexicographic key order. encoding/json preserves
// declaration order and the signed assertion bytes depend on it.
type Header struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
	Type      string `json:"typ"`
}

func (h *Header) encode() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Claims holds the claim set of a JWT. Timestamps are epoch seconds.
type Claims struct {
	Aud   string `json:"aud"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Scope string `json:"scope,omitempty"`
	Sub   string `json:"sub,omitempty"`

	// AdditionalClaims are marshaled alongside the named claims. It may not
	// contain a key that collides with one of them.
	AdditionalClaims map[string]interface{} `json:"-"`
}

// MarshalJSON splices AdditionalClaims into the named claim set.
func (c *Claims) MarshalJSON() ([]byte, error) {
	// Alias strips the method set so Marshal does not recurse.
	type alias Claims
	b, err := json.Marshal((*alias)(c))
	if err != nil {
		return nil, err
	}
	if len(c.AdditionalClaims) == 0 {
		return b, nil
	}
	prv, err := json.Marshal(c.AdditionalClaims)
	if err != nil {
		return nil, fmt.Errorf("jwt: invalid map of additional claims %v: %w", c.AdditionalClaims, err)
	}
	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	buf.WriteByte(',')
	buf.Write(prv[1:])
	return buf.Bytes(), nil
}

func (c *Claims) encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EncodeJWS encodes the data using the provided key as a JSON web signature.
func EncodeJWS(header *Header, c *Claims, key *rsa.PrivateKey) (string, error) {
	head, err := header.encode()
	if err != nil {
		return "", err
	}
	claims, err := c.encode()
	if err != nil {
		return "", err
	}
	ss := fmt.Sprintf("%s.%s", head, claims)
	h := sha256.New()
	h.Write([]byte(ss))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, h.Sum(nil))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", ss, base64.RawURLEncoding.EncodeToString(sig)), nil
}

// DecodeJWS decodes a claim set from a serialized JWS. The token signature is
// not validated, use [VerifyJWS] for that.
func DecodeJWS(payload string) (*Claims, error) {
	s := strings.Split(payload, ".")
	if len(s) < 2 {
		return nil, errors.New("jwt: invalid token received")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s[1])
	if err != nil {
		return nil, err
	}
	c := &Claims{}
	if err := json.Unmarshal(decoded, c); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(decoded, &c.AdditionalClaims); err != nil {
		return nil, err
	}
	return c, nil
}

// VerifyJWS tests whether the provided token was signed with the private half
// of key.
func VerifyJWS(token string, key *rsa.PublicKey) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return errors.New("jwt: invalid token received, token must have 3 parts")
	}
	signedContent := parts[0] + "." + parts[1]
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return err
	}
	h := sha256.New()
	h.Write([]byte(signedContent))
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, h.Sum(nil), sig)
}
