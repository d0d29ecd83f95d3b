package whatsapp

import (
	"github.com/twilio/twilio-go/twiml"

	"github.com/athplan/bridge/internal/dialogue"
)

// FormatTwiML renders engine reply segments as the channel's markup: one
// <Message> per segment, in input order. Text segments become a body
// block; image segments become an empty-body block with an attached
// media reference. Unknown segment types are dropped silently so newer
// engine traces never break replies.
func FormatTwiML(traces []dialogue.Trace) (string, error) {
	verbs := make([]twiml.Element, 0, len(traces))
	for _, trace := range traces {
		switch trace.Type {
		case dialogue.TraceTypeText:
			verbs = append(verbs, &twiml.MessagingMessage{Body: trace.Payload.Message})
		case dialogue.TraceTypeImage:
			if trace.Payload.URL == "" {
				continue
			}
			message := &twiml.MessagingMessage{}
			message.InnerElements = []twiml.Element{
				&twiml.MessagingMedia{Url: trace.Payload.URL},
			}
			verbs = append(verbs, message)
		}
	}
	return twiml.Messages(verbs)
}

// FormatText renders a single plain-text reply.
func FormatText(message string) (string, error) {
	return twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: message},
	})
}
