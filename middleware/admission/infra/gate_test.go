package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChanGate_AcquireUpToCapacity(t *testing.T) {
	g := NewChanGate(2)

	r1, ok := g.Acquire(context.Background())
	require.True(t, ok)
	r2, ok := g.Acquire(context.Background())
	require.True(t, ok)

	require.Equal(t, 2, g.InUse())
	require.Equal(t, 2, g.Capacity())

	// terceira tentativa deve estourar o prazo sem mutar estado
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	release, ok := g.Acquire(ctx)
	require.False(t, ok)
	require.Nil(t, release)
	require.Equal(t, 2, g.InUse())

	r1()
	r2()
	require.Equal(t, 0, g.InUse())
}

func TestChanGate_ReleaseWakesWaiter(t *testing.T) {
	g := NewChanGate(1)

	r1, ok := g.Acquire(context.Background())
	require.True(t, ok)

	acquired := make(chan func(), 1)
	go func() {
		r2, ok := g.Acquire(context.Background())
		if ok {
			acquired <- r2
		}
	}()

	// o waiter só anda depois do release
	select {
	case <-acquired:
		t.Fatalf("second acquire should be blocked")
	case <-time.After(30 * time.Millisecond):
	}

	r1()

	select {
	case r2 := <-acquired:
		r2()
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for blocked acquire to succeed")
	}

	require.Equal(t, 0, g.InUse())
}

func TestChanGate_ClampsCapacityToOne(t *testing.T) {
	g := NewChanGate(0)
	require.Equal(t, 1, g.Capacity())

	g = NewChanGate(-5)
	require.Equal(t, 1, g.Capacity())
}
