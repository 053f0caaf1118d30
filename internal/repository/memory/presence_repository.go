package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Presence is the live socket state for one connection: who is attached and
// which room they currently occupy. Purely in-memory, rebuilt on reconnect.
type Presence struct {
	UserId   uuid.UUID
	UserName string
	ChatId   uuid.UUID
	IsAdmin  bool
	JoinedAt time.Time
}

type PresenceRepository struct {
	cache *cache.Cache
}

func NewPresenceRepository() *PresenceRepository {
	// Stale presences (connections that died without unregistering) expire
	// after an hour; expired items purged every 10 minutes.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &PresenceRepository{
		cache: c,
	}
}

func (r *PresenceRepository) Save(connId string, p *Presence) {
	r.cache.Set(connId, p, cache.DefaultExpiration)
}

func (r *PresenceRepository) Get(connId string) (*Presence, bool) {
	if x, found := r.cache.Get(connId); found {
		return x.(*Presence), true
	}
	return nil, false
}

func (r *PresenceRepository) Delete(connId string) {
	r.cache.Delete(connId)
}

func (r *PresenceRepository) Count() int {
	return r.cache.ItemCount()
}
