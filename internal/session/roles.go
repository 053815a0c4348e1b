package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/docreplace-portal/internal/config"
	"github.com/iliyamo/docreplace-portal/internal/model"
)

// CachedRoles answers role questions from Redis and falls back to Inner on
// a miss.  With a nil client it is a plain pass-through.  Answers live for
// TTL; session changes invalidate them early, a grant revoked in the
// database does not.
type CachedRoles struct {
	Inner  RoleChecker
	RDB    *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewCachedRoles(inner RoleChecker, rdb *redis.Client, ttl time.Duration) *CachedRoles {
	if ttl <= 0 {
		ttl = config.DefaultRoleCacheTTL
	}
	return &CachedRoles{Inner: inner, RDB: rdb, TTL: ttl, Prefix: "portal:roles"}
}

func (r *CachedRoles) key(userID uint64, role model.Role) string {
	return fmt.Sprintf("%s:%d:%s", r.Prefix, userID, role)
}

func (r *CachedRoles) HasRole(ctx context.Context, userID uint64, role model.Role) (bool, error) {
	if r.RDB == nil {
		return r.Inner.HasRole(ctx, userID, role)
	}
	key := r.key(userID, role)
	if v, err := r.RDB.Get(ctx, key).Result(); err == nil {
		return v == "1", nil
	} else if err != redis.Nil {
		log.Printf("session: role cache read %s: %v", key, err)
	}
	ok, err := r.Inner.HasRole(ctx, userID, role)
	if err != nil {
		return false, err
	}
	val := "0"
	if ok {
		val = "1"
	}
	if err := r.RDB.Set(ctx, key, val, r.TTL).Err(); err != nil {
		log.Printf("session: role cache write %s: %v", key, err)
	}
	return ok, nil
}

// Invalidate drops every cached answer for userID.
func (r *CachedRoles) Invalidate(ctx context.Context, userID uint64) {
	if r.RDB == nil {
		return
	}
	if err := r.RDB.Del(ctx, r.key(userID, model.RoleAdmin), r.key(userID, model.RoleCustomer)).Err(); err != nil {
		log.Printf("session: role cache invalidate %d: %v", userID, err)
	}
}

// Listener returns an OnChange callback that invalidates the cache for the
// user whose session changed.
func (r *CachedRoles) Listener() func(Event) {
	return func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r.Invalidate(ctx, ev.Session.UserID)
	}
}
