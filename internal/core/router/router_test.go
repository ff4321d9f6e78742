package router

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	"github.com/pragmalink/go-pragmalink/internal/core/stack/memory"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

func newStack(t *testing.T, net *memory.Network) *memory.Stack {
	t.Helper()
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	s, err := memory.New(net, priv, "agent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// connectedPair 返回已互连且都订阅了 topic 的两个栈
func connectedPair(t *testing.T, topic string) (*memory.Stack, *memory.Stack) {
	t.Helper()
	net := memory.NewNetwork()
	a, b := newStack(t, net), newStack(t, net)
	addr := ma.StringCast("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, b.Listen(addr))
	require.NoError(t, a.Dial(context.Background(), addr))
	_, err := a.Subscribe(topic)
	require.NoError(t, err)
	_, err = b.Subscribe(topic)
	require.NoError(t, err)
	return a, b
}

func TestHandle_BroadcastPublishes(t *testing.T) {
	a, b := connectedPair(t, "alpha")
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "failures"})
	traffic := metrics.NewTraffic()
	r := New(a, failures, traffic)

	require.NoError(t, r.Handle(context.Background(), types.NewBroadcast("alpha", []byte("hello"))))
	assert.Equal(t, 1, a.Published())
	assert.Equal(t, float64(0), testutil.ToFloat64(failures))
	assert.Equal(t, int64(5), traffic.ForTopic("alpha").TotalOut)
	assert.Equal(t, int64(1), traffic.ForTopic("alpha").MessagesOut)

	var msg types.MessageEvent
	for ev := range b.Events() {
		if m, ok := ev.(types.MessageEvent); ok {
			msg = m
			break
		}
	}
	assert.Equal(t, b.TopicID("alpha"), msg.Topic)
	assert.Equal(t, []byte("hello"), msg.Data)
}

func TestHandle_UnsubscribedTopicFails(t *testing.T) {
	a, _ := connectedPair(t, "alpha")
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "failures"})
	traffic := metrics.NewTraffic()
	r := New(a, failures, traffic)

	err := r.Handle(context.Background(), types.NewBroadcast("beta", []byte("x")))
	assert.ErrorIs(t, err, types.ErrNotSubscribed)
	assert.Equal(t, float64(1), testutil.ToFloat64(failures))
	assert.Zero(t, traffic.ForTopic("beta").MessagesOut)

	// 失败后仍可继续处理请求
	require.NoError(t, r.Handle(context.Background(), &types.Broadcast{Topic: "alpha", Data: []byte("y")}))
	assert.Equal(t, 1, a.Published())
}

func TestHandle_OversizedPayload(t *testing.T) {
	a, _ := connectedPair(t, "alpha")
	a.MaxMessageSize = 8
	r := New(a, nil, nil)

	err := r.Handle(context.Background(), types.NewBroadcast("alpha", make([]byte, 9)))
	assert.ErrorIs(t, err, types.ErrMessageTooLarge)
}
