package auth

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/coachlink/internal/model"
)

// CacheObserver はセッションキャッシュのヒット・ミスを記録する。
type CacheObserver interface {
	RecordSessionCacheHit()
	RecordSessionCacheMiss()
}

// SessionCache は検証済みセッションを短時間保持するプロセス内キャッシュ。
// ページ読み込みごとのsessions参照を減らす。TTLはセッション期限とは独立で、
// 期限切れのセッションはTTL内でも返さない。
type SessionCache struct {
	lru      *expirable.LRU[string, *model.Session]
	observer CacheObserver
	now      func() time.Time
}

// NewSessionCache はSessionCacheを生成する。observerはnilでもよい。
func NewSessionCache(size int, ttl time.Duration, observer CacheObserver) *SessionCache {
	if size <= 0 {
		size = 1024
	}
	return &SessionCache{
		lru:      expirable.NewLRU[string, *model.Session](size, nil, ttl),
		observer: observer,
		now:      time.Now,
	}
}

// Get はセッションIDに対応するキャッシュ済みセッションのコピーを返す。
func (c *SessionCache) Get(id string) (*model.Session, bool) {
	s, ok := c.lru.Get(id)
	if ok && s.Expired(c.now()) {
		c.lru.Remove(id)
		ok = false
	}
	if !ok {
		c.miss()
		return nil, false
	}
	c.hit()
	cp := *s
	return &cp, true
}

// Add はセッションをキャッシュする。
func (c *SessionCache) Add(s *model.Session) {
	if s == nil || s.ID == "" {
		return
	}
	cp := *s
	c.lru.Add(s.ID, &cp)
}

// Remove はセッションをキャッシュから取り除く。
func (c *SessionCache) Remove(id string) {
	c.lru.Remove(id)
}

// RemoveUser は指定ユーザーのセッションをすべて取り除き、件数を返す。
func (c *SessionCache) RemoveUser(userID string) int {
	removed := 0
	for _, id := range c.lru.Keys() {
		if s, ok := c.lru.Peek(id); ok && s.UserID == userID {
			c.lru.Remove(id)
			removed++
		}
	}
	return removed
}

// Len はキャッシュ中のセッション数を返す。
func (c *SessionCache) Len() int {
	return c.lru.Len()
}

func (c *SessionCache) hit() {
	if c.observer != nil {
		c.observer.RecordSessionCacheHit()
	}
}

func (c *SessionCache) miss() {
	if c.observer != nil {
		c.observer.RecordSessionCacheMiss()
	}
}
