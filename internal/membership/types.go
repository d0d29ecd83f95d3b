package membership

import "time"

// User is one messaging-channel identity. PhoneNumber carries the channel
// address format (e.g. "whatsapp:+15551234567") and doubles as the
// dialogue-engine session id.
type User struct {
	PhoneNumber  string
	GroupName    string
	IsAdmin      bool
	MessageCount int
}

// Team is a named group sharing a subscription and an admin-curated
// schedule. Subscription state is owned by the billing process; the bridge
// only reads it.
type Team struct {
	Name               string
	JoinCode           string
	SubscriptionStatus string
	PlanName           string
}

// ScheduleUpdate is an append-only schedule post. The bridge creates rows
// and never mutates or deletes them.
type ScheduleUpdate struct {
	GroupName string
	Content   string
	CreatedBy string
	CreatedAt time.Time
}
