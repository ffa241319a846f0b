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

// Package serviceaccount authenticates requests using Google service account
// keys. It loads a key from a JSON or PKCS#12 key file, signs RS256 JWT
// assertions with it, exchanges them for bearer tokens via the OAuth2 JWT
// bearer grant, and caches the token until expiry. The same key also signs
// arbitrary blobs, which backs signed-URL style use cases.
//
// The typical entry point is [NewCredentialsFromFile] or
// [NewCredentialsFromJSON]:
//
//	creds, err := serviceaccount.NewCredentialsFromFile("key.json", nil)
//	if err != nil {
//		// TODO: handle error.
//	}
//	header, err := creds.AuthorizationHeader(ctx)
//
// The HTTP client and the clock are injectable through [Options], so token
// refresh and expiry behavior can be exercised deterministically in tests
// without network or wall-clock access. This package performs exactly one
// exchange attempt per refresh; retry policy, timeouts, and cancellation
// belong to the injected client and the caller.
package serviceaccount
