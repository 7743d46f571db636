package token_test

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"rowq/internal/token"
)

func TestGenerateIsUniqueWithFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gen := token.NewGenerator(token.WithClock(func() time.Time { return frozen }))

	seen := make(map[token.Token]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok := gen.Generate()
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d calls: %s", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestGenerateFormat(t *testing.T) {
	frozen := time.Unix(0, 1700000000123456789)
	gen := token.NewGenerator(token.WithClock(func() time.Time { return frozen }))

	parts := strings.Split(gen.Generate().String(), "-")
	if len(parts) != 4 {
		t.Fatalf("expected 4 token parts, got %v", parts)
	}
	if parts[0] != "1700000000123456789" {
		t.Fatalf("unexpected time component: %q", parts[0])
	}
	if parts[1] != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid component: %q", parts[1])
	}
	if parts[2] != "1" {
		t.Fatalf("expected first sequence to be 1, got %q", parts[2])
	}
	if len(parts[3]) != 16 {
		t.Fatalf("expected 16 char random suffix, got %q", parts[3])
	}
}

func TestGenerateConcurrent(t *testing.T) {
	gen := token.NewGenerator()
	const workers = 8
	const perWorker = 500

	var (
		mu   sync.Mutex
		seen = make(map[token.Token]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]token.Token, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, gen.Generate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, tok := range local {
				seen[tok] = struct{}{}
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d unique tokens, got %d", workers*perWorker, len(seen))
	}
}

func TestNewUsesDefaultGenerator(t *testing.T) {
	a, b := token.New(), token.New()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty tokens, got %q and %q", a, b)
	}
}
