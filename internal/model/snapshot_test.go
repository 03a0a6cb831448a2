package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUptimeBreakdownSerialized(t *testing.T) {
	boot := time.Unix(1_700_000_000, 0)
	u := NewUptime(boot, boot.Add(50*time.Hour+7*time.Minute+30*time.Second))
	if u.Days != 2 || u.Hours != 2 || u.Minutes != 7 {
		t.Fatalf("NewUptime = %dd %dh %dm, want 2d 2h 7m", u.Days, u.Hours, u.Minutes)
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]float64{"uptime_days": 2, "uptime_hours": 2, "uptime_minutes": 7} {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
}
