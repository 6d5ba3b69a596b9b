package ingest

import "strings"

// Route describes a parsed MQTT topic.
type Route struct {
	Handler string // "audio"
}

// ParseTopic maps an MQTT topic string to a Route.
//
// Routing is based entirely on the trailing segment — the prefix is ignored,
// so any topic prefix works as long as MQTT_TOPICS is set to match:
//
//	.../audio → audio (transcription request envelope)
//
// The reply topic (default {prefix}/transcript) is publish-only and never
// routed, which keeps the bridge from consuming its own output when
// subscribed to a wildcard.
func ParseTopic(topic string) *Route {
	parts := strings.Split(topic, "/")
	last := parts[len(parts)-1]

	switch last {
	case "audio":
		return &Route{Handler: "audio"}
	}
	return nil
}
