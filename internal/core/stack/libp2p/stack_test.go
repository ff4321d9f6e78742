package libp2p

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

func newTestStack(t *testing.T, agent string) *Stack {
	t.Helper()
	priv, err := identity.Generate()
	require.NoError(t, err)
	s, err := New(Config{PrivateKey: priv, AgentVersion: agent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// waitFor 读取事件直到 match 返回 true
func waitFor(t *testing.T, s *Stack, match func(types.Event) bool) types.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			require.True(t, ok, "event stream closed")
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

func listenLoopback(t *testing.T, s *Stack) ma.Multiaddr {
	t.Helper()
	require.NoError(t, s.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0")))
	addrs := s.Host().Network().ListenAddresses()
	require.NotEmpty(t, addrs)
	p2p := ma.StringCast("/p2p/" + s.ID().String())
	return addrs[0].Encapsulate(p2p)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoPrivateKey)
}

func TestDial_RequiresPeerID(t *testing.T) {
	s := newTestStack(t, "agent")
	err := s.Dial(context.Background(), ma.StringCast("/ip4/127.0.0.1/tcp/1"))
	assert.ErrorIs(t, err, ErrMissingPeerID)
}

func TestIdentifyAndGossip(t *testing.T) {
	a := newTestStack(t, "/pragma-node/0.1.0/A")
	b := newTestStack(t, "/pragma-node/0.1.0/B")

	_, err := a.Subscribe("alpha")
	require.NoError(t, err)
	_, err = b.Subscribe("alpha")
	require.NoError(t, err)

	addrB := listenLoopback(t, b)
	require.NoError(t, a.Dial(context.Background(), addrB))

	ev := waitFor(t, a, func(ev types.Event) bool {
		id, ok := ev.(types.IdentifyEvent)
		return ok && id.Peer == b.ID()
	}).(types.IdentifyEvent)

	assert.Equal(t, "/pragma-node/0.1.0/B", ev.AgentVersion)
	require.NotNil(t, ev.ObservedAddr)
	pub, err := crypto.UnmarshalPublicKey(ev.PublicKey)
	require.NoError(t, err)
	assert.True(t, b.ID().MatchesPublicKey(pub))

	a.AddExplicitPeer(b.ID())
	assert.True(t, a.Host().ConnManager().IsProtected(b.ID(), explicitTag))
	require.NoError(t, a.AddAddress(b.ID(), ev.ObservedAddr))

	// gossipsub 需要一次心跳建立 mesh，发布重试到对端收到为止
	deadline := time.Now().Add(10 * time.Second)
	var got types.MessageEvent
	for time.Now().Before(deadline) {
		require.NoError(t, a.Publish(context.Background(), a.TopicID("alpha"), []byte("hello")))
		select {
		case e := <-b.Events():
			if m, ok := e.(types.MessageEvent); ok {
				got = m
			}
		case <-time.After(200 * time.Millisecond):
		}
		if got.HasSource {
			break
		}
	}
	require.True(t, got.HasSource, "message not delivered")
	assert.Equal(t, a.ID(), got.Source)
	assert.Equal(t, types.TopicID("alpha"), got.Topic)
	assert.Equal(t, []byte("hello"), got.Data)
}

func TestPublish_Errors(t *testing.T) {
	s := newTestStack(t, "agent")

	err := s.Publish(context.Background(), s.TopicID("beta"), []byte("x"))
	assert.ErrorIs(t, err, types.ErrNotSubscribed)

	err = s.Publish(context.Background(), s.TopicID("beta"), make([]byte, s.cfg.MaxMessageSize+1))
	assert.ErrorIs(t, err, types.ErrMessageTooLarge)

	_, err = s.Subscribe("")
	assert.ErrorIs(t, err, types.ErrEmptyTopic)
}

func TestClose_ClosesEvents(t *testing.T) {
	s := newTestStack(t, "agent")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	for range s.Events() {
	}
	_, err := s.Subscribe("late")
	assert.ErrorIs(t, err, ErrStackClosed)
	assert.ErrorIs(t, s.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0")), ErrStackClosed)
}

func TestProvide_UsesIdentityKey(t *testing.T) {
	priv, err := identity.Generate()
	require.NoError(t, err)
	id, err := identity.New(priv)
	require.NoError(t, err)

	out, err := Provide(ModuleInput{Identity: id})
	require.NoError(t, err)
	defer out.Stack.Close()

	assert.Equal(t, id.ID(), out.Stack.ID())
}
