package bridge

import (
	"context"
)

// handlerFunc processes one inbound message.
type handlerFunc func(ctx context.Context, topic string, payload []byte) error

// routes maps every ingress topic filter to its handler. Command topics are
// subscribed with a single-level wildcard; the handler recovers the source
// from the matched topic.
func (b *Bridge) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		b.topics.SensorSpeed():     b.handleSpeed,
		b.topics.SensorBattery():   b.handleBattery,
		b.topics.CommandWildcard(): b.handleCommand,
	}
}
