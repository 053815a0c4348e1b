// Package realtime carries row-level insert notifications between the parts
// of the portal: a write publishes the new row on a topic, and live views
// (admin dashboard, open chats, SSE streams) subscribe to the topics they
// render.  Delivery is best-effort and ordered per subscriber only.
package realtime

import (
	"context"
	"encoding/json"
)

// Topics carrying inserted rows, one per table that is watched live.
const (
	TopicApplications = "applications.insert"
	TopicMessages     = "messages.insert"
	TopicPageViews    = "page_views.insert"
)

// Event is one notification.  Data holds the JSON encoded row.
type Event struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the row carried by e into v.
func (e Event) Decode(v any) error { return json.Unmarshal(e.Data, v) }

// Bus publishes and fans out events.  Subscribe returns a channel that is
// closed once ctx is done; callers must keep draining it until then.
type Bus interface {
	Publish(ctx context.Context, topic string, row any) error
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, error)
}

func encode(topic string, row any) (Event, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Data: b}, nil
}
