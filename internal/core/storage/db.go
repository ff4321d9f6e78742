package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// DB BadgerDB 封装
type DB struct {
	db     *badger.DB
	config Config
	closed atomic.Bool

	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

// Open 打开数据库
func Open(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	d := &DB{db: db, config: cfg}
	if cfg.GCInterval > 0 {
		d.startGC()
	}
	logger.Debug("数据库已打开", "path", cfg.Path)
	return d, nil
}

// startGC 启动值日志垃圾回收
func (d *DB) startGC() {
	ctx, cancel := context.WithCancel(context.Background())
	d.gcCancel = cancel

	d.gcWg.Add(1)
	go func() {
		defer d.gcWg.Done()

		ticker := time.NewTicker(d.config.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 运行到没有可回收空间为止
				for d.db.RunValueLogGC(d.config.GCDiscardRatio) == nil {
				}
			}
		}
	}()
}

// Get 读取键
func (d *DB) Get(key []byte) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, convertError(err)
}

// Put 写入键值
func (d *DB) Put(key, value []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return convertError(d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

// Delete 删除键
func (d *DB) Delete(key []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return convertError(d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}))
}

// PrefixScan 按前缀遍历
//
// 回调返回 false 时停止。传给回调的 key 与 value 都是副本。
func (d *DB) PrefixScan(prefix []byte, fn func(key, value []byte) bool) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// Close 关闭数据库
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if d.gcCancel != nil {
		d.gcCancel()
		d.gcWg.Wait()
	}
	return d.db.Close()
}

// convertError 转换 BadgerDB 错误
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return ErrEmptyKey
	default:
		return err
	}
}
