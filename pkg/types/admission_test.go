package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRequest_AcceptOnce(t *testing.T) {
	req := NewAuthRequest(PeerRecord{RequestID: "r1"})

	assert.True(t, req.Accept())
	assert.False(t, req.Reject(), "second answer must be ignored")
	assert.False(t, req.Abandon())

	v, ok := <-req.Verdict()
	require.True(t, ok)
	assert.True(t, v)

	_, ok = <-req.Verdict()
	assert.False(t, ok, "slot is closed after the verdict")
}

func TestAuthRequest_Reject(t *testing.T) {
	req := NewAuthRequest(PeerRecord{})
	require.True(t, req.Reject())

	v, ok := <-req.Verdict()
	require.True(t, ok)
	assert.False(t, v)
}

func TestAuthRequest_AbandonClosesWithoutValue(t *testing.T) {
	req := NewAuthRequest(PeerRecord{})
	require.True(t, req.Abandon())
	assert.False(t, req.Accept())

	_, ok := <-req.Verdict()
	assert.False(t, ok)
}

func TestAuthRequest_ConcurrentAnswers(t *testing.T) {
	req := NewAuthRequest(PeerRecord{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if req.Respond(i%2 == 0) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	_, ok := <-req.Verdict()
	assert.True(t, ok)
}

func TestInboundMessage_Clone(t *testing.T) {
	orig := InboundMessage{Topic: "alpha", Data: []byte("hello")}
	cp := orig.Clone()
	cp.Data[0] = 'J'

	assert.Equal(t, []byte("hello"), orig.Data)
	assert.Equal(t, "alpha", cp.Topic)
	assert.Nil(t, InboundMessage{}.Clone().Data)
}

func TestEventKinds(t *testing.T) {
	events := []Event{
		ListenAddrEvent{},
		IdentifyEvent{},
		MessageEvent{},
		OtherEvent{Name: "kad"},
	}
	kinds := []EventKind{KindListenAddr, KindIdentify, KindMessage, KindOther}
	for i, ev := range events {
		assert.Equal(t, kinds[i], ev.Kind())
	}
	assert.Equal(t, "identify", KindIdentify.String())
	assert.Equal(t, "other", EventKind(42).String())
}
