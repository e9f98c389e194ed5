package events

import (
	"errors"
	"testing"
	"time"
)

func mustBroker(t *testing.T) (*Broker, Subscriber) {
	t.Helper()
	b := NewBroker()
	b.Start()
	t.Cleanup(b.Stop)
	sub := b.Subscribe()
	t.Cleanup(func() { b.Unsubscribe(sub) })
	return b, sub
}

func recv(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishCommitFailedCarriesError(t *testing.T) {
	b, sub := mustBroker(t)
	b.PublishCommitFailed("ns", errors.New("boom"))

	ev := recv(t, sub)
	if ev.Type != EventCommitFailed {
		t.Errorf("Type = %v, want %v", ev.Type, EventCommitFailed)
	}
	if ev.Metadata["namespace"] != "ns" || ev.Metadata["error"] != "boom" {
		t.Errorf("Metadata = %v", ev.Metadata)
	}
}

func TestPublishTxnMergedCarriesCount(t *testing.T) {
	b, sub := mustBroker(t)
	b.PublishTxnMerged("ns", 3)

	ev := recv(t, sub)
	if ev.Type != EventTxnMerged {
		t.Errorf("Type = %v, want %v", ev.Type, EventTxnMerged)
	}
	if ev.Metadata["merges"] != "3" {
		t.Errorf("merges = %q, want %q", ev.Metadata["merges"], "3")
	}
}

func TestPublishTxnFallbackCarriesNames(t *testing.T) {
	b, sub := mustBroker(t)
	b.PublishTxnFallback("ns", []string{"a", "b"})

	ev := recv(t, sub)
	if ev.Type != EventTxnFallback {
		t.Errorf("Type = %v, want %v", ev.Type, EventTxnFallback)
	}
	if ev.Metadata["names"] != "a,b" {
		t.Errorf("names = %q, want %q", ev.Metadata["names"], "a,b")
	}
}

func TestPublishCheckpointedCarriesRootAndSeq(t *testing.T) {
	b, sub := mustBroker(t)
	b.PublishCheckpointed("ns", "sha1-deadbeef", 7)

	ev := recv(t, sub)
	if ev.Type != EventCheckpointed {
		t.Errorf("Type = %v, want %v", ev.Type, EventCheckpointed)
	}
	if ev.Metadata["root"] != "sha1-deadbeef" || ev.Metadata["seq"] != "7" {
		t.Errorf("Metadata = %v", ev.Metadata)
	}
}

func TestPublishRootlogLeadershipTogglesType(t *testing.T) {
	b, sub := mustBroker(t)

	b.PublishRootlogLeadership(true)
	if ev := recv(t, sub); ev.Type != EventRootlogLeader {
		t.Errorf("Type = %v, want %v", ev.Type, EventRootlogLeader)
	}

	b.PublishRootlogLeadership(false)
	if ev := recv(t, sub); ev.Type != EventRootlogFollower {
		t.Errorf("Type = %v, want %v", ev.Type, EventRootlogFollower)
	}
}
