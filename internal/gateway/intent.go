package gateway

import "strings"

// Intent is what the router decided an inbound message means. Exactly one
// of the concrete types below is returned per message.
type Intent interface {
	isIntent()
}

// JoinIntent is a group enrollment request. Code may be empty when the
// sender typed the keyword without a join code.
type JoinIntent struct {
	Code string
}

// BroadcastIntent is an admin group announcement. Content may be empty.
type BroadcastIntent struct {
	Content string
}

// ScheduleIntent is an admin schedule update. Content may be empty.
type ScheduleIntent struct {
	Content string
}

// FallbackIntent routes the message to the conversational engine.
type FallbackIntent struct{}

func (JoinIntent) isIntent()      {}
func (BroadcastIntent) isIntent() {}
func (ScheduleIntent) isIntent()  {}
func (FallbackIntent) isIntent()  {}

const (
	broadcastKeyword = "#update"
	scheduleKeyword  = "#schedule"
)

// ParseIntent classifies one inbound message body. Checks run in fixed
// order: join, #update, #schedule, fallback. The join keyword matches
// case-insensitively but requires a trailing argument; a bare "join" is
// ordinary conversation. Command prefixes are case-sensitive.
func ParseIntent(body string) Intent {
	trimmed := strings.TrimSpace(body)

	if len(trimmed) > 5 && strings.EqualFold(trimmed[:5], "join ") {
		return JoinIntent{Code: strings.TrimSpace(trimmed[5:])}
	}
	if content, ok := commandContent(trimmed, broadcastKeyword); ok {
		return BroadcastIntent{Content: content}
	}
	if content, ok := commandContent(trimmed, scheduleKeyword); ok {
		return ScheduleIntent{Content: content}
	}
	return FallbackIntent{}
}

// commandContent matches "keyword" or "keyword <content>" exactly.
func commandContent(body, keyword string) (string, bool) {
	if body == keyword {
		return "", true
	}
	if strings.HasPrefix(body, keyword+" ") {
		return strings.TrimSpace(body[len(keyword)+1:]), true
	}
	return "", false
}
