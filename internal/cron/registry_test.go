package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, nil, jobB)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestRegistryOnly(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: OrderTTLJobName}, &stubJob{name: SubscriptionAdvanceJobName}, &stubJob{name: OutboxRetentionJobName})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	all, err := registry.Only(" ")
	if err != nil || len(all.Jobs()) != 3 {
		t.Fatalf("empty filter should keep every job: %v", err)
	}

	picked, err := registry.Only("outbox_retention, order_ttl")
	if err != nil {
		t.Fatalf("Only: %v", err)
	}
	jobs := picked.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != OutboxRetentionJobName || jobs[1].Name() != OrderTTLJobName {
		t.Fatalf("unexpected selection %v", jobs)
	}

	if _, err := registry.Only("reindex"); err == nil {
		t.Fatal("expected unknown job error")
	}
}
