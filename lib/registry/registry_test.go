package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dIRC/lib/trie"
	"github.com/google/go-cmp/cmp"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// waitOrFail waits for wg or fails the test after timeout (deadlock detection)
func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("Timeout after %s (deadlock?)", timeout)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestInsertLookupRemove(t *testing.T) {
	r := New[string](trie.NicknameAlphabet, nil)

	if err := r.Insert("alice", "a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := r.Insert("ALICE", "b"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists for case folded duplicate, got %v", err)
	}
	if err := r.Insert("#nope", "c"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}

	if v, ok := r.Lookup("Alice"); !ok || v != "a" {
		t.Errorf("Lookup = %q, %t", v, ok)
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", r.Len())
	}

	if v, ok := r.Remove("alice"); !ok || v != "a" {
		t.Errorf("Remove = %q, %t", v, ok)
	}
	if _, ok := r.Remove("alice"); ok {
		t.Errorf("Second remove should fail")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Errorf("Lookup after Remove should fail")
	}
}

func TestOutOfMemory(t *testing.T) {
	r := New[int](trie.NicknameAlphabet, &Options[int]{MaxNodes: 5})

	if err := r.Insert("abcde", 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("xy", 2); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Expected ErrOutOfMemory, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Failed insert must not be visible")
	}
}

func TestFindAndExecute(t *testing.T) {
	r := New[*int](trie.NicknameAlphabet, nil)

	t.Run("NotFoundInserts", func(t *testing.T) {
		found, err := r.FindAndExecute("counter", func(v *int) error {
			t.Errorf("onFound must not run")
			return nil
		}, func() error {
			v := 0
			return r.InsertNoLock("counter", &v)
		})
		if found || err != nil {
			t.Errorf("FindAndExecute = %t, %v", found, err)
		}
	})

	t.Run("FoundMutatesValue", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			found, err := r.FindAndExecute("counter", func(v *int) error {
				*v++
				return nil
			}, nil)
			if !found || err != nil {
				t.Errorf("FindAndExecute = %t, %v", found, err)
			}
		}
		v, _ := r.Lookup("counter")
		if *v != 3 {
			t.Errorf("Expected 3, got %d", *v)
		}
	})

	t.Run("ErrorPropagation", func(t *testing.T) {
		myErr := errors.New("boom")
		_, err := r.FindAndExecute("counter", func(*int) error { return myErr }, nil)
		if !errors.Is(err, myErr) {
			t.Errorf("Expected callback error, got %v", err)
		}
		_, err = r.FindAndExecute("missing", nil, func() error { return myErr })
		if !errors.Is(err, myErr) {
			t.Errorf("Expected callback error, got %v", err)
		}
	})
}

// TestExclusivity verifies that onFound for the same key never overlaps
func TestExclusivity(t *testing.T) {
	for _, exclusive := range []bool{false, true} {
		t.Run(fmt.Sprintf("exclusive=%t", exclusive), func(t *testing.T) {
			r := New[int](trie.NicknameAlphabet, nil)
			_ = r.Insert("key", 0)

			var (
				inside  atomic.Int32
				maxSeen atomic.Int32
				calls   atomic.Int32
				wg      sync.WaitGroup
			)

			onFound := func(int) error {
				n := inside.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(50 * time.Microsecond)
				calls.Add(1)
				inside.Add(-1)
				return nil
			}

			const workers = 16
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						if exclusive {
							_, _ = r.FindAndExecuteExclusive("key", onFound, nil)
						} else {
							_, _ = r.FindAndExecute("key", onFound, nil)
						}
					}
				}()
			}
			waitOrFail(t, &wg, 10*time.Second)

			if maxSeen.Load() != 1 {
				t.Errorf("onFound executions overlapped (max %d concurrent)", maxSeen.Load())
			}
			if calls.Load() != workers*100 {
				t.Errorf("Expected %d calls, got %d", workers*100, calls.Load())
			}
		})
	}
}

// TestCrossKeyParallelism verifies that onFound for different keys can overlap.
// Each callback waits until the other one is running as well.
func TestCrossKeyParallelism(t *testing.T) {
	r := New[int](trie.NicknameAlphabet, nil)
	_ = r.Insert("a", 1)
	_ = r.Insert("b", 2)

	var barrier sync.WaitGroup
	barrier.Add(2)

	onFound := func(int) error {
		barrier.Done()
		done := make(chan struct{})
		go func() {
			barrier.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("other onFound never started")
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i, key := range []string{"a", "b"} {
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = r.FindAndExecute(key, onFound, nil)
		}(i, key)
	}
	waitOrFail(t, &wg, 10*time.Second)

	for _, err := range errs {
		if err != nil {
			t.Errorf("No parallelism: %v", err)
		}
	}
}

func TestExclusiveSelfDelete(t *testing.T) {
	r := New[string](trie.ChannelAlphabet, nil)
	_ = r.Insert("#self", "value")

	found, err := r.FindAndExecuteExclusive("#self", func(v string) error {
		if _, ok := r.RemoveNoLock("#self"); !ok {
			return errors.New("self delete failed")
		}
		return nil
	}, nil)
	if !found || err != nil {
		t.Fatalf("FindAndExecuteExclusive = %t, %v", found, err)
	}

	if _, ok := r.Lookup("#self"); ok {
		t.Errorf("Key must be absent after self delete")
	}
	found, _ = r.FindAndExecute("#self", func(string) error {
		t.Errorf("onFound must not run for a deleted key")
		return nil
	}, nil)
	if found {
		t.Errorf("FindAndExecute must report not found")
	}

	// no lock leaked: the key can be recreated and used again
	if err := r.Insert("#self", "again"); err != nil {
		t.Fatalf("Reinsert failed: %v", err)
	}
	if found, _ := r.FindAndExecuteExclusive("#self", nil, nil); !found {
		t.Errorf("Reinserted key not found")
	}
}

// TestRemoveWaitsForOnFound verifies the rendezvous: Remove blocks until a running onFound is done
func TestRemoveWaitsForOnFound(t *testing.T) {
	r := New[int](trie.NicknameAlphabet, nil)
	_ = r.Insert("busy", 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	go func() {
		_, _ = r.FindAndExecute("busy", func(int) error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		}, nil)
	}()
	<-started

	removed := make(chan struct{})
	go func() {
		r.Remove("busy")
		close(removed)
	}()

	select {
	case <-removed:
		t.Fatalf("Remove returned while onFound was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-removed:
	case <-time.After(5 * time.Second):
		t.Fatalf("Remove never returned")
	}
	if !finished.Load() {
		t.Errorf("onFound must have completed before Remove")
	}
}

func TestConcurrentCreateOnDemand(t *testing.T) {
	r := New[*atomic.Int32](trie.ChannelAlphabet, nil)

	var (
		created atomic.Int32
		wg      sync.WaitGroup
	)
	const workers = 32
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := r.FindAndExecuteExclusive("#x", func(v *atomic.Int32) error {
				v.Add(1)
				return nil
			}, func() error {
				created.Add(1)
				v := &atomic.Int32{}
				v.Store(1)
				return r.InsertNoLock("#x", v)
			})
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	waitOrFail(t, &wg, 10*time.Second)

	if created.Load() != 1 {
		t.Errorf("Expected exactly one creation, got %d", created.Load())
	}
	v, _ := r.Lookup("#x")
	if v.Load() != workers {
		t.Errorf("Expected %d increments, got %d", workers, v.Load())
	}
}

func TestForEachAndPrefixSearch(t *testing.T) {
	r := New[int](trie.ChannelAlphabet, nil)
	for i, k := range []string{"#b", "#a", "#ab", "&c"} {
		_ = r.Insert(k, i)
	}

	keys := make([]string, 0)
	r.ForEach(func(key string, _ int) bool {
		keys = append(keys, key)
		return true
	})
	if diff := cmp.Diff([]string{"#a", "#ab", "#b", "&c"}, keys); diff != "" {
		t.Errorf("ForEach mismatch (-want +got):\n%s", diff)
	}

	keys = keys[:0]
	r.PrefixSearch("#a", 0, func(key string, _ int) bool {
		keys = append(keys, key)
		return true
	})
	if diff := cmp.Diff([]string{"#a", "#ab"}, keys); diff != "" {
		t.Errorf("PrefixSearch mismatch (-want +got):\n%s", diff)
	}
}

func TestDestroy(t *testing.T) {
	freed := make([]int, 0)
	r := New[int](trie.NicknameAlphabet, &Options[int]{
		Destructor: func(v int) { freed = append(freed, v) },
	})
	_ = r.Insert("one", 1)
	_ = r.Insert("two", 2)

	r.Destroy(true)

	if len(freed) != 2 {
		t.Errorf("Expected destructor to run twice, ran %d times", len(freed))
	}
	if r.Len() != 0 {
		t.Errorf("Registry must be empty after Destroy")
	}

	// registry is reusable, destroy without freeing
	_ = r.Insert("three", 3)
	r.Destroy(false)
	if len(freed) != 2 {
		t.Errorf("Destroy(false) must not call the destructor")
	}
}
