package gateway

// User-visible replies. Decorations mirror what recipients see in the
// chat client, emoji included.
const (
	msgJoinUsage       = "To join a team, send: join <your team code>"
	msgInvalidJoinCode = "That join code doesn't match any team. Please check it and try again."
	msgJoinFailed      = "Sorry, we couldn't complete your enrollment right now. Please try again in a few minutes."

	msgBroadcastUsage  = "Usage: #update <message to your team>"
	msgScheduleUsage   = "Usage: #schedule <schedule update>"
	msgWrongGroup      = "You can only post updates to your own team."
	msgAdminNoGroup    = "You aren't assigned to a team yet. Join a team before posting updates."
	msgBroadcastFailed = "Sorry, the announcement could not be delivered. Please try again."
	msgScheduleFailed  = "Sorry, the schedule update could not be saved. Please try again."

	msgUsageLimit = "You've reached your team's message limit for this period. Please contact your team admin."
	msgApology    = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	broadcastDecoration = "📢 *Admin Update:*\n"
	scheduleDecoration  = "📋 *SCHEDULE UPDATE*\n\n"
)
