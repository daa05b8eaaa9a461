package config

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDurationJSON(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{`"90s"`, 90 * time.Second},
		{`"24h"`, 24 * time.Hour},
		{`"1h30m"`, 90 * time.Minute},
		{`45`, 45 * time.Second},
		{`0.5`, 500 * time.Millisecond},
		{`""`, 0},
	}
	for _, tc := range cases {
		var d Duration
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if d.Duration != tc.want {
			t.Errorf("%s = %v, want %v", tc.in, d.Duration, tc.want)
		}
	}

	for _, bad := range []string{`"soon"`, `true`, `{}`} {
		var d Duration
		if err := json.Unmarshal([]byte(bad), &d); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}

	out, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D(2 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"d":"2m0s"}` {
		t.Fatalf("marshal = %s", out)
	}
}

func TestDurationsLoadFromConfigFile(t *testing.T) {
	home := isolateHome(t)
	writeConfig(t, home, "config.json", `{"scheduler":{"maxDelay":"2h"},"speech":{"retention":"30m"},"capabilities":{"timeout":5}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.MaxDelay.Duration != 2*time.Hour {
		t.Errorf("max delay = %v", cfg.Scheduler.MaxDelay)
	}
	if cfg.Speech.Retention.Duration != 30*time.Minute {
		t.Errorf("retention = %v", cfg.Speech.Retention)
	}
	if cfg.Capabilities.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Capabilities.Timeout)
	}
}
