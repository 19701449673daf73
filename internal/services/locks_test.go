package services

import (
	"sync"
	"testing"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes the same key", func(t *testing.T) {
		locks := NewKeyedMutex()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.Lock("a")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		if counter != 64 {
			t.Errorf("expected 64 increments, got %d", counter)
		}
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		locks := NewKeyedMutex()
		unlockA := locks.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB := locks.Lock("b")
			unlockB()
			close(done)
		}()
		<-done
	})

	t.Run("released keys are cleaned up", func(t *testing.T) {
		locks := NewKeyedMutex()
		unlock := locks.Lock("a")
		unlock()

		locks.mu.Lock()
		defer locks.mu.Unlock()
		if len(locks.locks) != 0 {
			t.Errorf("expected the key map emptied, got %d entries", len(locks.locks))
		}
	})
}
