package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLockerSerializesSameScope(t *testing.T) {
	locker := NewScopeLocker()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locker.Acquire("exam-1")
			defer release()

			cur := atomic.AddInt32(&active, 1)
			for {
				max := atomic.LoadInt32(&maxActive)
				if cur <= max || atomic.CompareAndSwapInt32(&maxActive, max, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	// Only one holder may be inside the check-then-commit region at a time.
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestScopeLockerKeepsScopesIndependent(t *testing.T) {
	locker := NewScopeLocker()

	releaseA := locker.Acquire("exam-1")

	done := make(chan struct{})
	go func() {
		release := locker.Acquire("exam-2")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "an unrelated scope must not wait on exam-1")
	}
	releaseA()
}

func TestScopeLockerReleaseAllowsReacquire(t *testing.T) {
	locker := NewScopeLocker()

	release := locker.Acquire("exam-1")
	release()

	done := make(chan struct{})
	go func() {
		release := locker.Acquire("exam-1")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "released scope must be acquirable again")
	}
}
