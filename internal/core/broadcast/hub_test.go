package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 基础功能测试
// ============================================================================

func TestHub_SendToAllReceivers(t *testing.T) {
	hub := New[int](4)

	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	n, err := hub.Send(7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx := context.Background()
	v, err := a.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestHub_CloneIsolatesReceivers(t *testing.T) {
	hub := New[[]byte](4, WithClone(func(b []byte) []byte {
		return append([]byte(nil), b...)
	}))

	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	payload := []byte("abc")
	_, err = hub.Send(payload)
	require.NoError(t, err)

	ctx := context.Background()
	va, err := a.Recv(ctx)
	require.NoError(t, err)
	va[0] = 'X'

	vb, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), vb)
	assert.Equal(t, []byte("abc"), payload)
}

func TestHub_WithoutCloneSharesValue(t *testing.T) {
	hub := New[[]byte](4)

	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	_, err = hub.Send([]byte("abc"))
	require.NoError(t, err)

	ctx := context.Background()
	va, err := a.Recv(ctx)
	require.NoError(t, err)
	vb, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Same(t, &va[0], &vb[0])
}

func TestHub_DefaultCapacity(t *testing.T) {
	hub := New[string](0)
	assert.Equal(t, DefaultCapacity, hub.capacity)
}

// TestHub_OverflowDropsOldest 慢消费者只丢失最旧的消息
func TestHub_OverflowDropsOldest(t *testing.T) {
	hub := New[int](3)
	rx, err := hub.Subscribe()
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := hub.Send(i)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(2), rx.Lagged())

	got := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		got = append(got, <-rx.C())
	}
	assert.Equal(t, []int{3, 4, 5}, got)
}

// TestHub_SlowReceiverDoesNotAffectOthers 一个接收者滞后不影响其他接收者
func TestHub_SlowReceiverDoesNotAffectOthers(t *testing.T) {
	hub := New[int](2)
	slow, _ := hub.Subscribe()
	fast, _ := hub.Subscribe()

	for i := 0; i < 10; i++ {
		_, err := hub.Send(i)
		require.NoError(t, err)
		assert.Equal(t, i, <-fast.C())
	}

	assert.Equal(t, uint64(0), fast.Lagged())
	assert.Equal(t, uint64(8), slow.Lagged())
}

// ============================================================================
// 封存语义测试
// ============================================================================

func TestHub_NoReceiversYetDropsSilently(t *testing.T) {
	hub := New[int](1)

	n, err := hub.Send(1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, hub.Sealed())
}

func TestHub_SealedAfterLastReceiverCloses(t *testing.T) {
	hub := New[int](1)
	a, _ := hub.Subscribe()
	b, _ := hub.Subscribe()

	require.NoError(t, a.Close())
	assert.False(t, hub.Sealed())

	_, err := hub.Send(1)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.True(t, hub.Sealed())

	_, err = hub.Send(2)
	assert.ErrorIs(t, err, ErrNoReceivers)

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrSealed)
}

func TestReceiver_CloseIdempotent(t *testing.T) {
	hub := New[int](1)
	rx, _ := hub.Subscribe()

	require.NoError(t, rx.Close())
	require.NoError(t, rx.Close())

	_, err := rx.Recv(context.Background())
	assert.ErrorIs(t, err, ErrReceiverClosed)
}

func TestHub_CloseClosesReceivers(t *testing.T) {
	hub := New[int](1)
	rx, _ := hub.Subscribe()

	hub.Close()
	_, ok := <-rx.C()
	assert.False(t, ok)
	assert.NoError(t, rx.Close())

	_, err := hub.Send(1)
	assert.ErrorIs(t, err, ErrNoReceivers)
}

func TestReceiver_RecvContextCancel(t *testing.T) {
	hub := New[int](1)
	rx, _ := hub.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ============================================================================
// 并发测试
// ============================================================================

func TestHub_ConcurrentSendAndClose(t *testing.T) {
	hub := New[int](8)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		rx, err := hub.Subscribe()
		require.NoError(t, err)

		wg.Add(1)
		go func(rx *Receiver[int]) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				select {
				case <-rx.C():
				case <-time.After(time.Millisecond):
				}
			}
			_ = rx.Close()
		}(rx)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			if _, err := hub.Send(i); err != nil {
				return
			}
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not observe sealed hub")
	}
	assert.True(t, hub.Sealed())
}
