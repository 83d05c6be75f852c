package collab

import (
	"testing"
	"time"

	"github.com/prxssh/soulcore/internal/wire"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	c := NewTTLCache[string, int](10 * time.Millisecond)
	c.Put("a", 1)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected fresh entry, got %v, %v", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestTTLCacheReapDropsExpired(t *testing.T) {
	c := NewTTLCache[string, int](5 * time.Millisecond)
	c.Put("a", 1)
	c.Put("b", 2)

	time.Sleep(15 * time.Millisecond)
	c.Reap()

	c.mu.Lock()
	n := len(c.m)
	c.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected all entries reaped, got %d remaining", n)
	}
}

func TestBrowseShareCacheInvalidate(t *testing.T) {
	c := NewBrowseShareCache(time.Minute)
	c.Put("alice", wire.SharesReply{})

	if _, ok := c.Get("alice"); !ok {
		t.Fatal("expected entry present after Put")
	}

	c.Invalidate("alice")
	if _, ok := c.Get("alice"); ok {
		t.Fatal("expected entry gone after Invalidate")
	}
}
