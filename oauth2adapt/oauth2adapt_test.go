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

package oauth2adapt

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/serviceaccount"
	"golang.org/x/oauth2"
)

type fakeTokenSource struct {
	tok *oauth2.Token
	err error
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	return f.tok, f.err
}

type fakeTokenProvider struct {
	tok *serviceaccount.Token
	err error
}

func (f *fakeTokenProvider) Token(context.Context) (*serviceaccount.Token, error) {
	return f.tok, f.err
}

func TestTokenProviderFromTokenSource(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	tp := TokenProviderFromTokenSource(&fakeTokenSource{
		tok: &oauth2.Token{
			AccessToken: "token-value",
			TokenType:   "Bearer",
			Expiry:      expiry,
		},
	})
	tok, err := tp.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok.Value != "token-value" {
		t.Errorf("Value = %q; want token-value", tok.Value)
	}
	if tok.Type != "Bearer" {
		t.Errorf("Type = %q; want Bearer", tok.Type)
	}
	if !tok.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v; want %v", tok.Expiry, expiry)
	}
}

func TestTokenProviderFromTokenSource_Error(t *testing.T) {
	retrieveErr := &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusServiceUnavailable},
		Body:     []byte("oops"),
	}
	tp := TokenProviderFromTokenSource(&fakeTokenSource{err: retrieveErr})
	_, err := tp.Token(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var ae *serviceaccount.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error %v should convert to *serviceaccount.Error", err)
	}
	if got, want := string(ae.Body), "oops"; got != want {
		t.Errorf("Body = %q; want %q", got, want)
	}
	if !ae.Temporary() {
		t.Error("a 503 should be temporary")
	}
	// The original error stays reachable through the chain.
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		t.Errorf("error %v should still unwrap to *oauth2.RetrieveError", err)
	}
}

func TestTokenSourceFromTokenProvider(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	ts := TokenSourceFromTokenProvider(&fakeTokenProvider{
		tok: &serviceaccount.Token{
			Value:  "token-value",
			Type:   "Bearer",
			Expiry: expiry,
		},
	})
	tok, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "token-value" {
		t.Errorf("AccessToken = %q; want token-value", tok.AccessToken)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q; want Bearer", tok.TokenType)
	}
	if !tok.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v; want %v", tok.Expiry, expiry)
	}
}

func TestTokenSourceFromTokenProvider_Error(t *testing.T) {
	authErr := &serviceaccount.Error{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Body:     []byte("oops"),
	}
	ts := TokenSourceFromTokenProvider(&fakeTokenProvider{err: authErr})
	_, err := ts.Token()
	if err == nil {
		t.Fatal("expected error")
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		t.Fatalf("error %v should convert to *oauth2.RetrieveError", err)
	}
	if got, want := string(re.Body), "oops"; got != want {
		t.Errorf("Body = %q; want %q", got, want)
	}
	var ae *serviceaccount.Error
	if !errors.As(err, &ae) {
		t.Errorf("error %v should still unwrap to *serviceaccount.Error", err)
	}
}

func TestTokenProviderFromTokenSource_PlainError(t *testing.T) {
	plain := errors.New("plain failure")
	tp := TokenProviderFromTokenSource(&fakeTokenSource{err: plain})
	_, err := tp.Token(context.Background())
	if !errors.Is(err, plain) {
		t.Errorf("got %v; want the original error", err)
	}
}
