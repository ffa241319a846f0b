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

// Package oauth2adapt helps converts types used in
// [cloud.google.com/go/serviceaccount] and [golang.org/x/oauth2].
package oauth2adapt

import (
	"context"
	"errors"

	"cloud.google.com/go/serviceaccount"
	"golang.org/x/oauth2"
)

// TokenProviderFromTokenSource converts any [golang.org/x/oauth2.TokenSource]
// into a [cloud.google.com/go/serviceaccount.TokenProvider].
func TokenProviderFromTokenSource(ts oauth2.TokenSource) serviceaccount.TokenProvider {
	return &tokenProviderAdapter{ts: ts}
}

type tokenProviderAdapter struct {
	ts oauth2.TokenSource
}

// Token calls the underlying token source's Token method. The oauth2 library
// does not plumb contexts through to the source, so ctx cannot be honored
// here.
func (tp *tokenProviderAdapter) Token(context.Context) (*serviceaccount.Token, error) {
	tok, err := tp.ts.Token()
	if err != nil {
		var err2 *oauth2.RetrieveError
		if ok := errors.As(err, &err2); ok {
			return nil, oauth2ErrorToAuthError(err2)
		}
		return nil, err
	}
	return &serviceaccount.Token{
		Value:  tok.AccessToken,
		Type:   tok.TokenType,
		Expiry: tok.Expiry,
	}, nil
}

// TokenSourceFromTokenProvider converts any
// [cloud.google.com/go/serviceaccount.TokenProvider] into a
// [golang.org/x/oauth2.TokenSource].
func TokenSourceFromTokenProvider(tp serviceaccount.TokenProvider) oauth2.TokenSource {
	return &tokenSourceAdapter{tp: tp}
}

type tokenSourceAdapter struct {
	tp serviceaccount.TokenProvider
}

// Token calls the underlying token provider's Token method.
func (ts *tokenSourceAdapter) Token() (*oauth2.Token, error) {
	tok, err := ts.tp.Token(context.Background())
	if err != nil {
		var err2 *serviceaccount.Error
		if ok := errors.As(err, &err2); ok {
			err = authErrorToOauth2Error(err2)
		}
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Value,
		TokenType:   tok.Type,
		Expiry:      tok.Expiry,
	}, nil
}

// oauth2ErrorToAuthError converts err into a [serviceaccount.Error] that
// still unwraps to the original [oauth2.RetrieveError].
func oauth2ErrorToAuthError(err *oauth2.RetrieveError) error {
	return &serviceaccount.Error{
		Response: err.Response,
		Body:     err.Body,
		Err:      err,
	}
}

// authErrorToOauth2Error wraps err so that it can also be unwrapped as an
// [oauth2.RetrieveError].
func authErrorToOauth2Error(err *serviceaccount.Error) error {
	return errors.Join(
		err,
		&oauth2.RetrieveError{
			Response: err.Response,
			Body:     err.Body,
		},
	)
}
