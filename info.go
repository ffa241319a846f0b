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
	"fmt"

	"cloud.google.com/go/serviceaccount/internal/credsfile"
)

// ServiceAccountInfo holds the normalized contents of a service account key.
// It is immutable after parse: the key material and identity fields are never
// modified and may be read concurrently without locking.
type ServiceAccountInfo struct {
	// ClientEmail is the service account's email address, the "iss" of every
	// assertion signed with this key.
	ClientEmail string
	// PrivateKeyID is an opaque identifier for the key, carried as "kid" in
	// assertion headers. Empty for keys loaded from PKCS#12 files.
	PrivateKeyID string
	// PrivateKey is the PEM-encoded RSA private key material.
	PrivateKey string
	// TokenURI is the token exchange endpoint, also the "aud" of assertions.
	TokenURI string
	// Scopes are the requested permissions, space-joined into the "scope"
	// claim. Defaults to [ScopeCloudPlatform].
	Scopes []string
	// Subject is the user to impersonate via domain-wide delegation, carried
	// as "sub" when set. Optional.
	Subject string
}

// ParseServiceAccountCredentials parses a JSON key file into a
// [ServiceAccountInfo]. source labels where the data was loaded from and
// appears in every parse error. defaultTokenURI is used when the key file
// carries no token_uri; pass "" for [GoogleOAuthTokenEndpoint].
//
// The private_key_id, private_key, and client_email fields are mandatory:
// parsing fails if any of them is missing or empty. Scopes and subject are
// not read from the JSON; they are configured by the caller afterwards.
func ParseServiceAccountCredentials(data []byte, source, defaultTokenURI string) (*ServiceAccountInfo, error) {
	f, err := credsfile.ParseServiceAccount(data)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: invalid credentials, parsing failed on data loaded from %s: %w", source, err)
	}
	if f == nil {
		f = &credsfile.ServiceAccountFile{}
	}
	present, err := credsfile.PresentFields(data)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: invalid credentials, parsing failed on data loaded from %s: %w", source, err)
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"private_key_id", f.PrivateKeyID},
		{"private_key", f.PrivateKey},
		{"client_email", f.ClientEmail},
	} {
		if !present[field.name] {
			return nil, fmt.Errorf("serviceaccount: the %s field is missing in credentials loaded from %s", field.name, source)
		}
		if field.value == "" {
			return nil, fmt.Errorf("serviceaccount: the %s field is empty in credentials loaded from %s", field.name, source)
		}
	}
	tokenURI := defaultTokenURI
	if tokenURI == "" {
		tokenURI = GoogleOAuthTokenEndpoint
	}
	if present["token_uri"] {
		if f.TokenURL == "" {
			return nil, fmt.Errorf("serviceaccount: the token_uri field is empty in credentials loaded from %s", source)
		}
		tokenURI = f.TokenURL
	}
	return &ServiceAccountInfo{
		ClientEmail:  f.ClientEmail,
		PrivateKeyID: f.PrivateKeyID,
		PrivateKey:   f.PrivateKey,
		TokenURI:     tokenURI,
		Scopes:       []string{ScopeCloudPlatform},
	}, nil
}
