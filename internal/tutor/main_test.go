package tutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGenerator answers by schema so one instance can serve the router and
// the specialists.
type fakeGenerator struct {
	mu       sync.Mutex
	route    string
	reply    string
	routeErr error
	replyErr error
	requests []GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.Schema == routeSchema {
		return f.route, f.routeErr
	}
	return f.reply, f.replyErr
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func routeTo(intent Intent) string {
	return fmt.Sprintf(`{"intent":%q,"decline":""}`, intent)
}

type fakeWordPairs struct {
	mu    sync.Mutex
	rows  map[[3]string]string
	err   error
	saves int
}

func newFakeWordPairs() *fakeWordPairs {
	return &fakeWordPairs{rows: map[[3]string]string{}}
}

func (f *fakeWordPairs) SaveWordPair(_ context.Context, in WordPairInput) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.err != nil {
		return "", false, f.err
	}
	key := [3]string{in.UserID, in.SourceWord, in.TranslatedWord}
	if id, ok := f.rows[key]; ok {
		return id, false, nil
	}
	id := fmt.Sprintf("wp-%d", len(f.rows)+1)
	f.rows[key] = id
	return id, true, nil
}

var errUpstream = errors.New("deadline exceeded")

func mustPrompts(t *testing.T) *Prompts {
	t.Helper()
	p, err := LoadPrompts()
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	return p
}
