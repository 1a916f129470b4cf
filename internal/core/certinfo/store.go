package certinfo

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-icesip/pkg/types"
)

// DefaultStoreSize 默认共享缓存容量
const DefaultStoreSize = 256

// Store 进程级共享的证书解析缓存
//
// 同一张证书（颁发者+序列号 相同）在多个传输间只解析一次。
type Store struct {
	cache *lru.Cache[string, *types.CertificateInfo]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewStore 创建共享缓存
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultStoreSize
	}
	c, err := lru.New[string, *types.CertificateInfo](size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: c}, nil
}

var (
	defaultStore     *Store
	defaultStoreOnce sync.Once
)

// DefaultStore 返回进程级默认缓存
func DefaultStore() *Store {
	defaultStoreOnce.Do(func() {
		s, err := NewStore(DefaultStoreSize)
		if err != nil {
			panic(err)
		}
		defaultStore = s
	})
	return defaultStore
}

// Get 返回证书信息，必要时解析
//
// 返回值在所有调用方之间共享，不得修改。
func (s *Store) Get(der []byte) (*types.CertificateInfo, string, error) {
	key, err := IssuerSerial(der)
	if err != nil {
		return nil, "", err
	}
	info, err := s.lookup(key, der)
	if err != nil {
		return nil, "", err
	}
	return info, key, nil
}

func (s *Store) lookup(key string, der []byte) (*types.CertificateInfo, error) {
	if info, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return info, nil
	}
	s.misses.Add(1)

	info, err := Parse(der)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, info)
	return info, nil
}

// Len 缓存条目数
func (s *Store) Len() int {
	return s.cache.Len()
}

// Stats 返回命中与未命中次数
func (s *Store) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// Purge 清空缓存
func (s *Store) Purge() {
	s.cache.Purge()
}
