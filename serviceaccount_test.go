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
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestToken_IsValidAt(t *testing.T) {
	now := time.Unix(10000, 0)
	tests := []struct {
		name string
		tok  *Token
		want bool
	}{
		{name: "nil token", tok: nil, want: false},
		{name: "empty value", tok: &Token{Type: "Bearer", Expiry: now.Add(time.Hour)}, want: false},
		{name: "expires later", tok: &Token{Value: "v", Expiry: now.Add(time.Hour)}, want: true},
		{name: "expires exactly now", tok: &Token{Value: "v", Expiry: now}, want: false},
		{name: "expired", tok: &Token{Value: "v", Expiry: now.Add(-time.Second)}, want: false},
		{name: "one second left", tok: &Token{Value: "v", Expiry: now.Add(time.Second)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.IsValidAt(now); got != tt.want {
				t.Errorf("IsValidAt() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestToken_AuthorizationHeader(t *testing.T) {
	tok := &Token{Value: "access-token-value", Type: "Type"}
	if got, want := tok.AuthorizationHeader(), "Authorization: Type access-token-value"; got != want {
		t.Errorf("AuthorizationHeader() = %q; want %q", got, want)
	}
}

func TestError_Temporary(t *testing.T) {
	tests := []struct {
		name string
		code int
		want bool
	}{
		{name: "temporary with 500", code: http.StatusInternalServerError, want: true},
		{name: "temporary with 503", code: http.StatusServiceUnavailable, want: true},
		{name: "temporary with 408", code: http.StatusRequestTimeout, want: true},
		{name: "temporary with 429", code: http.StatusTooManyRequests, want: true},
		{name: "permanent with 400", code: http.StatusBadRequest, want: false},
		{name: "permanent with 418", code: http.StatusTeapot, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := &Error{
				Response: &http.Response{
					StatusCode: tt.code,
				},
			}
			if got := ae.Temporary(); got != tt.want {
				t.Errorf("Temporary() = %v; want %v", got, tt.want)
			}
		})
	}
}

// fakeTokenProvider hands out the queued tokens or errors in order, counting
// how many times it is asked.
type fakeTokenProvider struct {
	mu    sync.Mutex
	queue []func() (*Token, error)
	calls int
}

func (f *fakeTokenProvider) Token(context.Context) (*Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, errors.New("no more responses queued")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	f.calls++
	return next()
}

func tokenResponse(tok *Token) func() (*Token, error) {
	return func() (*Token, error) { return tok, nil }
}

func errorResponse(err error) func() (*Token, error) {
	return func() (*Token, error) { return nil, err }
}

func TestCachedTokenProvider_ExpiredOnArrivalForcesRefresh(t *testing.T) {
	now := time.Unix(10000, 0)
	fake := &fakeTokenProvider{queue: []func() (*Token, error){
		// First token arrives already expired, as if the server returned
		// expires_in 0. The second is good for a while.
		tokenResponse(&Token{Value: "access-token-r1", Type: "Type", Expiry: now}),
		tokenResponse(&Token{Value: "access-token-r2", Type: "Type", Expiry: now.Add(1000 * time.Second)}),
	}}
	tp := NewCachedTokenProvider(fake, &CachedTokenProviderOptions{
		Clock: func() time.Time { return now },
	})

	ctx := context.Background()
	for i, want := range []string{"access-token-r1", "access-token-r2", "access-token-r2"} {
		tok, err := tp.Token(ctx)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if tok.Value != want {
			t.Errorf("call %d: token = %q; want %q", i+1, tok.Value, want)
		}
	}
	if fake.calls != 2 {
		t.Errorf("underlying provider called %d times; want 2", fake.calls)
	}
}

func TestCachedTokenProvider_FailedRefreshDoesNotPoisonState(t *testing.T) {
	now := time.Unix(10000, 0)
	clock := now
	refreshErr := errors.New("exchange failed")
	fake := &fakeTokenProvider{queue: []func() (*Token, error){
		tokenResponse(&Token{Value: "token-1", Type: "Type", Expiry: now.Add(100 * time.Second)}),
		errorResponse(refreshErr),
		tokenResponse(&Token{Value: "token-2", Type: "Type", Expiry: now.Add(10000 * time.Second)}),
	}}
	tp := NewCachedTokenProvider(fake, &CachedTokenProviderOptions{
		Clock: func() time.Time { return clock },
	})

	ctx := context.Background()
	if tok, err := tp.Token(ctx); err != nil || tok.Value != "token-1" {
		t.Fatalf("got (%v, %v); want token-1", tok, err)
	}

	// Expire the cached token; the next refresh fails and the error must be
	// surfaced without wiping the cache entry.
	clock = now.Add(200 * time.Second)
	if _, err := tp.Token(ctx); !errors.Is(err, refreshErr) {
		t.Fatalf("got %v; want %v", err, refreshErr)
	}

	// A later call retries the refresh and succeeds.
	tok, err := tp.Token(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Value != "token-2" {
		t.Errorf("token = %q; want token-2", tok.Value)
	}
	if fake.calls != 3 {
		t.Errorf("underlying provider called %d times; want 3", fake.calls)
	}
}

func TestCachedTokenProvider_SerializesConcurrentRefreshes(t *testing.T) {
	now := time.Unix(10000, 0)
	fake := &fakeTokenProvider{queue: []func() (*Token, error){
		func() (*Token, error) {
			// Linger so racing callers pile up on the lock.
			time.Sleep(10 * time.Millisecond)
			return &Token{Value: "only-token", Type: "Type", Expiry: now.Add(time.Hour)}, nil
		},
	}}
	tp := NewCachedTokenProvider(fake, &CachedTokenProviderOptions{
		Clock: func() time.Time { return now },
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := tp.Token(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			if tok.Value != "only-token" {
				t.Errorf("token = %q; want only-token", tok.Value)
			}
		}()
	}
	wg.Wait()
	if fake.calls != 1 {
		t.Errorf("underlying provider called %d times; want 1", fake.calls)
	}
}

func TestNewCachedTokenProvider_DoesNotDoubleWrap(t *testing.T) {
	fake := &fakeTokenProvider{}
	tp := NewCachedTokenProvider(fake, nil)
	if got := NewCachedTokenProvider(tp, nil); got != tp {
		t.Error("wrapping a cached provider should return it unchanged")
	}
}
