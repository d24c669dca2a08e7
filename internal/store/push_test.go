package store

import "testing"

func TestPushUpsertListDelete(t *testing.T) {
	s := NewPushStore(testDB(t))

	sub, err := s.Upsert("https://push.example/ep1", "p256-1", "auth-1", "Phone")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub.ID == 0 || sub.Endpoint != "https://push.example/ep1" {
		t.Fatalf("sub = %+v", sub)
	}

	// Re-subscribing the same endpoint replaces keys, not rows.
	sub2, err := s.Upsert("https://push.example/ep1", "p256-new", "auth-new", "Phone")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if sub2.P256dhKey != "p256-new" {
		t.Errorf("p256 = %q, want updated key", sub2.P256dhKey)
	}

	if _, err := s.Upsert("https://push.example/ep2", "p256-2", "auth-2", "Tablet"); err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	subs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("list = %d subs, want 2", len(subs))
	}

	if err := s.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, _ = s.List()
	if len(subs) != 1 || subs[0].DeviceName != "Tablet" {
		t.Fatalf("after delete = %+v", subs)
	}
}
