package messaging

// ExchangeLibraryEvents is the durable topic exchange every library event
// flows through. The realtime service binds its queue to it with a wildcard.
const ExchangeLibraryEvents = "library.events"

// Routing keys on ExchangeLibraryEvents. The first segment groups events so
// consumers can bind selectively ("sync.#", "game.#").
const (
	RoutingKeySyncStarted     = "sync.started"
	RoutingKeySyncProgress    = "sync.progress"
	RoutingKeySyncCompleted   = "sync.completed"
	RoutingKeySyncFailed      = "sync.failed"
	RoutingKeySyncRateLimited = "sync.rate_limited"
	RoutingKeySyncCancelled   = "sync.cancelled"
	RoutingKeyGameAdded       = "game.added"
	RoutingKeyGameUpdated     = "game.updated"
	RoutingKeyAchievement     = "game.achievement_unlocked"
	RoutingKeyRateLimitWarn   = "system.rate_limit_warning"
	RoutingKeyNotification    = "system.notification"
)
