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

// Package credsfile contains the definition and parsing of service account
// key files, hidden from the public surface of the serviceaccount package.
package credsfile

// ServiceAccountFile representation of a service account json file. All
// fields of the key file are tolerated on input; the engine itself consumes
// only the key material, client email, and token endpoint.
type ServiceAccountFile struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURL             string `json:"auth_uri"`
	TokenURL            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
	UniverseDomain      string `json:"universe_domain"`
}

// ServiceAccountType is the file type string carried by service account key
// files. It is not used for dispatch here, but is recorded for callers that
// inspect it.
const ServiceAccountType = "service_account"
