package certinfo

import (
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-icesip/internal/util/logger"
	"github.com/dep2p/go-icesip/pkg/types"
)

var log = logger.Logger("sips.certinfo")

type entry struct {
	key  string
	info *types.CertificateInfo
}

// Cache 单个传输的证书信息缓存
//
// Update 与读取可以来自不同 goroutine。
type Cache struct {
	store *Store

	mu          sync.RWMutex
	local       entry
	remote      entry
	remoteChain int

	recomputes atomic.Uint64
}

// NewCache 创建缓存，store 为 nil 时使用默认共享缓存
func NewCache(store *Store) *Cache {
	if store == nil {
		store = DefaultStore()
	}
	return &Cache{store: store}
}

// Update 使用握手得到的证书刷新缓存
//
// local 为空时清空本地信息；remoteChain 为空时清空对端信息。
// 颁发者+序列号 与缓存一致的证书不重新计算。解析失败的一侧被清空，
// 不会保留旧值。
func (c *Cache) Update(local []byte, remoteChain [][]byte) error {
	var (
		leaf []byte
		errs error
	)
	if len(remoteChain) > 0 {
		leaf = remoteChain[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refresh(&c.local, local); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.refresh(&c.remote, leaf); err != nil {
		errs = multierr.Append(errs, err)
	}
	c.remoteChain = len(remoteChain)
	if c.remote.info == nil {
		c.remoteChain = 0
	}

	if errs != nil {
		log.Warn("证书信息解析失败", "err", errs)
	}
	return errs
}

func (c *Cache) refresh(e *entry, der []byte) error {
	if len(der) == 0 {
		*e = entry{}
		return nil
	}

	key, err := IssuerSerial(der)
	if err != nil {
		*e = entry{}
		return err
	}
	if e.info != nil && e.key == key {
		return nil
	}

	info, err := c.store.lookup(key, der)
	if err != nil {
		*e = entry{}
		return err
	}
	// 共享存储中的值被多个传输引用，缓存持有自己的副本
	*e = entry{key: key, info: info.Clone()}
	c.recomputes.Add(1)
	return nil
}

// Local 本地证书信息的副本，可能为 nil
func (c *Cache) Local() *types.CertificateInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local.info.Clone()
}

// Remote 对端叶子证书信息的副本，可能为 nil
func (c *Cache) Remote() *types.CertificateInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote.info.Clone()
}

// RemoteChainLength 对端证书链长度
func (c *Cache) RemoteChainLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteChain
}

// Recomputes 缓存条目被替换的次数
func (c *Cache) Recomputes() uint64 {
	return c.recomputes.Load()
}

// Reset 清空缓存
func (c *Cache) Reset() {
	c.mu.Lock()
	c.local = entry{}
	c.remote = entry{}
	c.remoteChain = 0
	c.mu.Unlock()
}
