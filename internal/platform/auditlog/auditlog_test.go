package auditlog

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	event := Event{
		OccurredAt:   time.Unix(1700000000, 0).UTC(),
		Actor:        "user-1",
		Action:       "auth.forbidden",
		ResourceType: "http",
		ResourceID:   "POST /api/v1/systems",
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	event.Actor = " "
	if err := event.Validate(); err == nil {
		t.Fatalf("blank actor accepted")
	}
}

func TestComputeIntegritySHA256_Stable(t *testing.T) {
	event := Event{
		OccurredAt:   time.Unix(1700000000, 0).UTC(),
		Actor:        "user-1",
		Action:       "auth.forbidden",
		ResourceType: "http",
		ResourceID:   "POST /api/v1/systems",
		RequestID:    "req-1",
	}
	payload, err := json.Marshal(map[string]any{"status": 403})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	sum1, err := ComputeIntegritySHA256(event, payload)
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	sum2, err := ComputeIntegritySHA256(event, payload)
	if err != nil {
		t.Fatalf("ComputeIntegritySHA256() err=%v", err)
	}
	if sum1 != sum2 {
		t.Fatalf("integrity not stable: %q vs %q", sum1, sum2)
	}
	if len(sum1) != 64 {
		t.Fatalf("len(sum)=%d, want 64 hex chars", len(sum1))
	}
}
