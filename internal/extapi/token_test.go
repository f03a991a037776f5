package extapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenCache_RefreshesOnceAndReuses(t *testing.T) {
	var calls int32
	login := func(_ context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok-1", time.Now().Add(time.Hour), nil
	}

	cache := &tokenCache{}
	for i := 0; i < 3; i++ {
		tok, err := cache.get(context.Background(), login)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("token = %q, want tok-1", tok)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("login called %d times, want 1", got)
	}
}

func TestTokenCache_RefreshesInsideExpiryMargin(t *testing.T) {
	var calls int32
	login := func(_ context.Context) (string, time.Time, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			// Expires inside the refresh margin, so it is never reused.
			return "stale", time.Now().Add(30 * time.Second), nil
		}
		return "fresh", time.Now().Add(time.Hour), nil
	}

	cache := &tokenCache{}
	if _, err := cache.get(context.Background(), login); err != nil {
		t.Fatalf("first get: %v", err)
	}
	tok, err := cache.get(context.Background(), login)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("token = %q, want fresh", tok)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("login called %d times, want 2", got)
	}
}

func TestTokenCache_NoExpiryHintCachesForSession(t *testing.T) {
	var calls int32
	login := func(_ context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "session-tok", time.Time{}, nil
	}

	cache := &tokenCache{}
	for i := 0; i < 5; i++ {
		if _, err := cache.get(context.Background(), login); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("login called %d times, want 1", got)
	}
}

func TestTokenCache_ConcurrentCallersCoalesce(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	login := func(_ context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		<-started
		return "tok", time.Now().Add(time.Hour), nil
	}

	cache := &tokenCache{}
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.get(context.Background(), login)
			if err != nil {
				errs <- err
				return
			}
			if tok != "tok" {
				errs <- errors.New("unexpected token " + tok)
			}
		}()
	}
	// Let everyone queue up on the in-flight login, then release it.
	time.Sleep(50 * time.Millisecond)
	close(started)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent get: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("login called %d times, want 1", got)
	}
}

func TestTokenCache_LoginErrorNotCached(t *testing.T) {
	var calls int32
	login := func(_ context.Context) (string, time.Time, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "", time.Time{}, errors.New("bad credentials")
		}
		return "tok", time.Now().Add(time.Hour), nil
	}

	cache := &tokenCache{}
	if _, err := cache.get(context.Background(), login); err == nil {
		t.Fatalf("want error on first get")
	}
	tok, err := cache.get(context.Background(), login)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if tok != "tok" {
		t.Fatalf("token = %q, want tok", tok)
	}
}

func TestTokenCache_InvalidateForcesRelogin(t *testing.T) {
	var calls int32
	login := func(_ context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", time.Now().Add(time.Hour), nil
	}

	cache := &tokenCache{}
	if _, err := cache.get(context.Background(), login); err != nil {
		t.Fatalf("get: %v", err)
	}
	cache.invalidate()
	if _, err := cache.get(context.Background(), login); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("login called %d times, want 2", got)
	}
}
