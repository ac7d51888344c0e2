package main

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type topicPublisher interface {
	// Publish blocks until the server acknowledges and returns its message id.
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

type topicSet interface {
	For(topic string) topicPublisher
}

type publisherSource interface {
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubTopics keeps one batching publisher per topic for the life of the
// relay and flushes them all on Stop.
type pubsubTopics struct {
	source publisherSource
	mtx    sync.Mutex
	open   map[string]*gcppubsub.Publisher
}

func newPubSubTopics(source publisherSource) *pubsubTopics {
	return &pubsubTopics{source: source, open: make(map[string]*gcppubsub.Publisher)}
}

func (t *pubsubTopics) For(topic string) topicPublisher {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	pub, ok := t.open[topic]
	if !ok {
		pub = t.source.Publisher(topic)
		if pub == nil {
			return nil
		}
		t.open[topic] = pub
	}
	return gcpTopic{pub}
}

func (t *pubsubTopics) Stop() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for name, pub := range t.open {
		pub.Stop()
		delete(t.open, name)
	}
}

type gcpTopic struct {
	pub *gcppubsub.Publisher
}

func (g gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return g.pub.Publish(ctx, msg).Get(ctx)
}
