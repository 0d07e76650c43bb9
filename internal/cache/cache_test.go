package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/toiawase/internal/models"
)

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("  What   is GDPR? ", 10, []string{"crm", "billing"})
	b := Fingerprint("what is gdpr?", 10, []string{"billing", "crm"})
	if a != b {
		t.Error("whitespace/case/source-order variations should share a fingerprint")
	}
	if Fingerprint("what is gdpr?", 20, []string{"crm", "billing"}) == a {
		t.Error("different max results must change the fingerprint")
	}
	if Fingerprint("what is gdpr?", 10, []string{"crm"}) == a {
		t.Error("different source scope must change the fingerprint")
	}
}

func TestPutThenGetWithinTTL(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Stop()
	resp := &models.QueryResponse{Answer: "42"}
	c.Put("k", resp)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit within TTL")
	}
	if got.Answer != "42" {
		t.Errorf("Answer = %q", got.Answer)
	}
}

func TestGetAfterTTLMisses(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	defer c.Stop()
	c.Put("k", &models.QueryResponse{Answer: "stale"})
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestCleanupIdempotent(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	defer c.Stop()
	c.Put("k", &models.QueryResponse{})
	time.Sleep(20 * time.Millisecond)
	c.Cleanup()
	c.Cleanup()
	if c.Len() != 0 {
		t.Errorf("Len = %d after cleanup", c.Len())
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Stop()
	c.Put("a", &models.QueryResponse{})
	c.Put("b", &models.QueryResponse{})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after clear", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	defer c.Stop()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := Fingerprint("query", n, nil)
			for j := 0; j < 100; j++ {
				c.Put(key, &models.QueryResponse{Answer: "x"})
				if resp, ok := c.Get(key); ok && resp.Answer != "x" {
					t.Error("partial read observed")
				}
				c.Cleanup()
			}
		}(i)
	}
	wg.Wait()
}
