package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTraffic_PerTopic(t *testing.T) {
	tr := newTraffic(newFakeClock().Now)

	tr.LogSent("alpha", 10)
	tr.LogSent("alpha", 5)
	tr.LogRecv("alpha", 7)
	tr.LogRecv("beta", 3)

	alpha := tr.ForTopic("alpha")
	assert.Equal(t, int64(15), alpha.TotalOut)
	assert.Equal(t, int64(7), alpha.TotalIn)
	assert.Equal(t, int64(2), alpha.MessagesOut)
	assert.Equal(t, int64(1), alpha.MessagesIn)

	beta := tr.ForTopic("beta")
	assert.Equal(t, int64(3), beta.TotalIn)
	assert.Zero(t, beta.TotalOut)

	assert.Equal(t, Stats{}, tr.ForTopic("gamma"))

	totals := tr.Totals()
	assert.Equal(t, int64(15), totals.TotalOut)
	assert.Equal(t, int64(10), totals.TotalIn)
	assert.Equal(t, int64(2), totals.MessagesOut)
	assert.Equal(t, int64(2), totals.MessagesIn)

	assert.Len(t, tr.ByTopic(), 2)
}

func TestTraffic_TrimIdle(t *testing.T) {
	clock := newFakeClock()
	tr := newTraffic(clock.Now)

	tr.LogRecv("old", 1)
	clock.Advance(time.Minute)
	cutoff := clock.Now()
	tr.LogRecv("fresh", 1)

	assert.Equal(t, 1, tr.TrimIdle(cutoff))
	_, ok := tr.ByTopic()["old"]
	assert.False(t, ok)
	assert.Equal(t, int64(1), tr.ForTopic("fresh").TotalIn)
	assert.Equal(t, int64(2), tr.Totals().TotalIn)
}

func TestTraffic_Concurrent(t *testing.T) {
	tr := NewTraffic()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.LogSent("alpha", 1)
				tr.LogRecv("alpha", 2)
			}
		}()
	}
	wg.Wait()

	s := tr.ForTopic("alpha")
	assert.Equal(t, int64(800), s.TotalOut)
	assert.Equal(t, int64(1600), s.TotalIn)
}

func TestRateMeter_Window(t *testing.T) {
	clock := newFakeClock()
	r := newRateMeter(clock.Now)

	r.Add(60)
	assert.Equal(t, int64(60), r.Window())
	assert.InDelta(t, 1.0, r.Rate(), 1e-9)

	clock.Advance(30 * time.Second)
	r.Add(120)
	assert.Equal(t, int64(180), r.Window())

	// 第一笔流量滑出窗口
	clock.Advance(31 * time.Second)
	assert.Equal(t, int64(120), r.Window())

	clock.Advance(2 * time.Minute)
	assert.Zero(t, r.Window())
	require.Equal(t, clock.Now(), r.LastUpdate())
}
