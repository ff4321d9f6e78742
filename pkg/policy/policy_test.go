package policy

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// certifiedRecord 返回出示了由 authority 签发、节点联署的证书令牌的记录
func certifiedRecord(t *testing.T, authority crypto.PrivKey) types.PeerRecord {
	t.Helper()
	priv, err := identity.Generate()
	require.NoError(t, err)
	id, err := peer.IDFromPrivateKey(priv)
	require.NoError(t, err)

	issued, err := identity.IssueCertificate(authority, []byte("member"), id)
	require.NoError(t, err)
	token, err := identity.SignCertificate(priv, []byte(issued))
	require.NoError(t, err)
	raw, err := priv.GetPublic().Raw()
	require.NoError(t, err)
	return types.PeerRecord{ID: id, PublicKey: raw, Certificate: token, HasCertificate: true}
}

func newAuthority(t *testing.T) crypto.PrivKey {
	t.Helper()
	priv, err := identity.Generate()
	require.NoError(t, err)
	return priv
}

func TestCheck_Certificates(t *testing.T) {
	authority := newAuthority(t)
	strict := New(Config{RequireCertificate: true, Authority: authority.GetPublic()})
	open := New(Config{})

	rec := certifiedRecord(t, authority)
	assert.NoError(t, strict.Check(rec))
	assert.NoError(t, open.Check(rec))

	bare := types.PeerRecord{PublicKey: rec.PublicKey}
	assert.ErrorIs(t, strict.Check(bare), ErrNoCertificate)
	assert.NoError(t, open.Check(bare))

	uncertified := types.PeerRecord{PublicKey: rec.PublicKey, Certificate: identity.Uncertified, HasCertificate: true}
	assert.ErrorIs(t, strict.Check(uncertified), ErrNoCertificate)
	assert.NoError(t, open.Check(uncertified))

	forged := types.PeerRecord{PublicKey: rec.PublicKey, Certificate: "CERT123", HasCertificate: true}
	assert.ErrorIs(t, open.Check(forged), ErrBadCertificate)

	// 令牌属于另一个节点
	stolen := certifiedRecord(t, authority)
	stolen.PublicKey = rec.PublicKey
	assert.ErrorIs(t, strict.Check(stolen), ErrBadCertificate)
}

func TestCheck_SelfMintedCertificateRejected(t *testing.T) {
	authority := newAuthority(t)
	strict := New(Config{RequireCertificate: true, Authority: authority.GetPublic()})

	// 节点自己充当权威
	priv, err := identity.Generate()
	require.NoError(t, err)
	minted := certifiedRecord(t, priv)
	assert.ErrorIs(t, strict.Check(minted), ErrBadCertificate)

	// 另一个权威签发的证书同样无效
	assert.ErrorIs(t, strict.Check(certifiedRecord(t, newAuthority(t))), ErrBadCertificate)
}

func TestCheck_RequireWithoutAuthority(t *testing.T) {
	d := New(Config{RequireCertificate: true})
	assert.ErrorIs(t, d.Check(certifiedRecord(t, newAuthority(t))), ErrNoAuthority)
	assert.ErrorIs(t, d.Check(types.PeerRecord{}), ErrNoAuthority)
}

func TestCheck_RateLimit(t *testing.T) {
	d := New(Config{RatePerSecond: 0.001, Burst: 2})
	rec := types.PeerRecord{}

	assert.NoError(t, d.Check(rec))
	assert.NoError(t, d.Check(rec))
	assert.ErrorIs(t, d.Check(rec), ErrRateLimited)
}

func TestRun_AnswersRequests(t *testing.T) {
	authority := newAuthority(t)
	d := New(Config{RequireCertificate: true, Authority: authority.GetPublic()})
	queue := make(chan *types.AuthRequest, 2)

	good := types.NewAuthRequest(certifiedRecord(t, authority))
	bad := types.NewAuthRequest(types.PeerRecord{})
	queue <- good
	queue <- bad
	close(queue)

	require.NoError(t, d.Run(context.Background(), queue))

	assert.True(t, <-good.Verdict())
	assert.False(t, <-bad.Verdict())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(Config{}).Run(ctx, make(chan *types.AuthRequest))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
