package modelock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentHoldersSameModeProceed(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	entered := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire(Mode(1))
			entered <- struct{}{}
			time.Sleep(5 * time.Millisecond)
			l.Release()
		}()
	}
	deadline := time.After(time.Second)
	for i := 0; i < 8; i++ {
		select {
		case <-entered:
		case <-deadline:
			t.Fatal("holders of the same mode should proceed concurrently")
		}
	}
	wg.Wait()
	require.Equal(t, 0, l.Holders())
}

func TestDifferentModeBlocksUntilReleased(t *testing.T) {
	l := New()
	l.Acquire(Mode(1))

	unblocked := make(chan struct{})
	go func() {
		l.Acquire(Mode(2))
		close(unblocked)
		l.Release()
	}()

	select {
	case <-unblocked:
		t.Fatal("a different mode tag should have blocked")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("releasing the exclusive holder should admit the blocked requester")
	}
}

func TestWithRunsAndReleases(t *testing.T) {
	l := New()
	ran := false
	l.With(Mode(1), func() { ran = true })
	assert.True(t, ran)
	assert.Equal(t, 0, l.Holders())
}
