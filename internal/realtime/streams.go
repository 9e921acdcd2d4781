package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
	StreamApprovals     = "approvals"
)

// DefaultStreams lists every stream owners may subscribe to.
var DefaultStreams = []string{StreamNotifications, StreamApprovals}
