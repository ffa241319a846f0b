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
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// p12Password is the fixed password gcloud uses when exporting service
// account keys in PKCS#12 format.
const p12Password = "notasecret"

// ParseServiceAccountP12File loads a PKCS#12 key file, conventionally
// produced by `gcloud iam service-accounts keys create --key-file-type=p12`,
// into a [ServiceAccountInfo].
//
// The certificate's Common Name becomes the client email and the RSA private
// key is re-encoded as PEM. PKCS#12 containers carry no key identifier, so
// PrivateKeyID is left empty, and no token_uri, so TokenURI is set to
// [GoogleOAuthTokenEndpoint]; use [Options.TokenURI] to override.
func ParseServiceAccountP12File(path string) (*ServiceAccountInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot read PKCS#12 key file %q: %w", path, err)
	}
	priv, cert, err := pkcs12.Decode(data, p12Password)
	if err != nil {
		return nil, fmt.Errorf("serviceaccount: cannot parse PKCS#12 key file %q: %w", path, err)
	}
	if cert == nil {
		return nil, fmt.Errorf("serviceaccount: no certificate found in PKCS#12 key file %q", path)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok || key == nil {
		return nil, fmt.Errorf("serviceaccount: no RSA private key found in PKCS#12 key file %q", path)
	}
	enc := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return &ServiceAccountInfo{
		ClientEmail: cert.Subject.CommonName,
		PrivateKey:  string(enc),
		TokenURI:    GoogleOAuthTokenEndpoint,
		Scopes:      []string{ScopeCloudPlatform},
	}, nil
}
