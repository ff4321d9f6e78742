package storage

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// seedPrefix 种子地址键前缀
var seedPrefix = []byte("s/")

// Seed 一个种子条目
type Seed struct {
	Peer peer.ID
	Addr ma.Multiaddr
}

// SeedBook 已准入节点的地址簿
type SeedBook struct {
	db *DB
}

// NewSeedBook 创建种子簿
func NewSeedBook(db *DB) *SeedBook {
	return &SeedBook{db: db}
}

func seedKey(p peer.ID) []byte {
	key := make([]byte, 0, len(seedPrefix)+len(p))
	key = append(key, seedPrefix...)
	return append(key, p...)
}

// Put 记录节点地址（覆盖旧值）
//
// 地址末尾的 /p2p 组件被去掉，DialAddrs 会重新附加。
func (b *SeedBook) Put(p peer.ID, addr ma.Multiaddr) error {
	if p == "" || addr == nil {
		return ErrEmptyKey
	}
	if transport, id := peer.SplitAddr(addr); transport != nil && id != "" {
		addr = transport
	}
	return b.db.Put(seedKey(p), addr.Bytes())
}

// Get 读取节点地址
func (b *SeedBook) Get(p peer.ID) (ma.Multiaddr, error) {
	raw, err := b.db.Get(seedKey(p))
	if err != nil {
		return nil, err
	}
	return ma.NewMultiaddrBytes(raw)
}

// Remove 删除节点地址
func (b *SeedBook) Remove(p peer.ID) error {
	return b.db.Delete(seedKey(p))
}

// List 返回所有种子
//
// 无法解码的条目被跳过并记录日志。
func (b *SeedBook) List() ([]Seed, error) {
	var seeds []Seed
	err := b.db.PrefixScan(seedPrefix, func(key, value []byte) bool {
		id := peer.ID(key[len(seedPrefix):])
		addr, err := ma.NewMultiaddrBytes(value)
		if err != nil {
			logger.Warn("跳过损坏的种子条目", "peer", id, "err", err)
			return true
		}
		seeds = append(seeds, Seed{Peer: id, Addr: addr})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	return seeds, nil
}

// DialAddrs 返回带 /p2p/<id> 后缀的种子地址
func (b *SeedBook) DialAddrs() ([]ma.Multiaddr, error) {
	seeds, err := b.List()
	if err != nil {
		return nil, err
	}
	out := make([]ma.Multiaddr, 0, len(seeds))
	for _, s := range seeds {
		p2p, err := ma.NewMultiaddr("/p2p/" + s.Peer.String())
		if err != nil {
			logger.Warn("跳过无效种子节点 ID", "peer", s.Peer, "err", err)
			continue
		}
		out = append(out, s.Addr.Encapsulate(p2p))
	}
	return out, nil
}

// Close 关闭底层数据库
func (b *SeedBook) Close() error {
	return b.db.Close()
}
