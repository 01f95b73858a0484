package constants

// Server -> client event types on the realtime bus.
const (
	WSEventConnectionEstablished = "connection_established"
	WSEventPong                  = "pong"
	WSEventSyncStarted           = "sync_started"
	WSEventSyncProgress          = "sync_progress"
	WSEventSyncCompleted         = "sync_completed"
	WSEventSyncFailed            = "sync_failed"
	WSEventSyncRateLimited       = "sync_rate_limited"
	WSEventSyncCancelled         = "sync_cancelled"
	WSEventGameAdded             = "game_added"
	WSEventGameUpdated           = "game_updated"
	WSEventAchievementUnlocked   = "achievement_unlocked"
	WSEventSystemNotification    = "system_notification"
	WSEventRateLimitWarning      = "rate_limit_warning"
	WSEventConnectionError       = "connection_error"
)

// Client -> server message types.
const (
	WSActionSubscribe    = "subscribe"
	WSActionUnsubscribe  = "unsubscribe"
	WSActionJoinLibrary  = "join_library"
	WSActionLeaveLibrary = "leave_library"
	WSActionPing         = "ping"
	WSActionAIChat       = "ai_chat_message" // opaque to this core, forwarded unmodified
)

// RoomForLibrary builds the delivery room name of one library.
func RoomForLibrary(libraryID string) string {
	return "library:" + libraryID
}

// RoomGeneral receives broadcast events not scoped to a library.
const RoomGeneral = "general"
