package pubsub

import (
	"reflect"
	"testing"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
)

func TestTopicNamesDeduplicates(t *testing.T) {
	cfg := config.PubSubConfig{
		OrdersTopic:     "quickcart-orders",
		PaymentsTopic:   " quickcart-orders ",
		DeliveriesTopic: "",
		DomainTopic:     "quickcart-domain",
	}
	got := TopicNames(cfg)
	want := []string{"quickcart-orders", "quickcart-domain"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"proj", "orders", "projects/proj/topics/orders"},
		{"proj", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"proj", "  ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestSubscriptionResourceName(t *testing.T) {
	if got := subscriptionResourceName("proj", "notify"); got != "projects/proj/subscriptions/notify" {
		t.Fatalf("unexpected name %q", got)
	}
	full := "projects/other/subscriptions/notify"
	if got := subscriptionResourceName("proj", full); got != full {
		t.Fatalf("expected full name kept, got %q", got)
	}
	if got := subscriptionResourceName("proj", ""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if c.NotificationsSubscription() != nil {
		t.Fatal("expected nil subscriber from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
