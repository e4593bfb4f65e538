// Package redis backs the store contracts with Redis: JSON documents
// under namespaced keys, pub/sub wakeups for change notification, and
// consume-once list mailboxes for signaling.
package redis

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lumachat/voiceroom/internal/domain"
)

func roomKey(id domain.RoomID) string {
	return fmt.Sprintf("rooms:%s", id)
}

func roomEventChan(id domain.RoomID) string {
	return fmt.Sprintf("rooms.ev:%s", id)
}

const (
	roomIndexKey  = "rooms:index"
	roomsListChan = "rooms.ev"
)

func signalKey(room domain.RoomID, to domain.UserID) string {
	return fmt.Sprintf("rooms:%s:signal:%s", room, to)
}

func signalEventChan(room domain.RoomID, to domain.UserID) string {
	return fmt.Sprintf("rooms.sig:%s:%s", room, to)
}

func inviteKey(room domain.RoomID) string {
	return fmt.Sprintf("rooms:%s:invites", room)
}

func inviteEventChan(room domain.RoomID, to domain.UserID) string {
	return fmt.Sprintf("rooms.inv:%s:%s", room, to)
}

const (
	listenersKey      = "listeners"
	listenersChan     = "listeners.ev"
	callIndexKey      = "calls:index"
	callIncomingChanP = "calls.in:%s"
)

func callKey(id string) string {
	return fmt.Sprintf("calls:%s", id)
}

func callEventChan(id string) string {
	return fmt.Sprintf("calls.ev:%s", id)
}

func callIncomingChan(listener domain.UserID) string {
	return fmt.Sprintf(callIncomingChanP, listener)
}

// NewClient builds a client from config values.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
