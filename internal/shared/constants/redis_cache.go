package constants

import (
	"fmt"
	"strings"
	"time"
)

// Redis key layout
// Pattern: eventbooking:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Pages carrying ticket counts stay short-lived: a page read just before a
// reservation can be written back after its invalidation, and the TTL is
// then the only bound on how long it shows the old count.
const (
	TTL_DYNAMIC_SHORT  = 30 * time.Second // 30 seconds - for event listings and searches
	TTL_DYNAMIC_MEDIUM = 2 * time.Minute  // 2 minutes - for booking histories
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "eventbooking"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENTS_LIST   = CACHE_PREFIX + ":events:list"   // + :page:X:limit:Y:category:Z:q:W
	CACHE_KEY_EVENTS_SEARCH = CACHE_PREFIX + ":events:search" // + :q:X:page:Y
	LOCK_KEY_EVENT          = CACHE_PREFIX + ":lock:event:"   // + event-id
)

const (
	TTL_EVENT_LIST   = TTL_DYNAMIC_SHORT
	TTL_EVENT_SEARCH = TTL_DYNAMIC_SHORT
)

// ================== BOOKINGS MODULE ==================

const (
	CACHE_KEY_USER_BOOKINGS = CACHE_PREFIX + ":bookings:user:uuid:" // + user-id
)

const (
	TTL_USER_BOOKINGS = TTL_DYNAMIC_MEDIUM
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + type:ip
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_LISTS = CACHE_PREFIX + ":events:*"
)

// ================== HELPER FUNCTIONS ==================

// BuildEventListKey constructs the listing key for a page of active events.
// Example: BuildEventListKey(1, 10, "music", "") -> "eventbooking:events:list:page:1:limit:10:category:music"
func BuildEventListKey(page, limit int, category, search string) string {
	if search != "" {
		return fmt.Sprintf("%s:q:%s:page:%d:limit:%d:category:%s",
			CACHE_KEY_EVENTS_SEARCH, strings.ToLower(search), page, limit, strings.ToLower(category))
	}
	key := fmt.Sprintf("%s:page:%d:limit:%d", CACHE_KEY_EVENTS_LIST, page, limit)
	if category != "" {
		key += ":category:" + strings.ToLower(category)
	}
	return key
}

func BuildEventLockKey(eventID string) string {
	return LOCK_KEY_EVENT + eventID
}

func BuildUserBookingsKey(userID string) string {
	return CACHE_KEY_USER_BOOKINGS + userID
}

func BuildRateLimitKey(limitType, ip string) string {
	return RATE_LIMIT_PREFIX + limitType + ":" + ip
}
