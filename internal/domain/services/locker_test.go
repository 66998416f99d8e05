package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEditLocker_SerializesSameID(t *testing.T) {
	locker := NewEditLocker()
	var active, peak int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(1)
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, locker.held())
}

func TestEditLocker_DifferentIDsDoNotBlock(t *testing.T) {
	locker := NewEditLocker()
	unlockA := locker.Lock(1)

	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock(2)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different id blocked")
	}
	assert.Equal(t, 1, locker.held())
	unlockA()
	assert.Equal(t, 0, locker.held())
}
