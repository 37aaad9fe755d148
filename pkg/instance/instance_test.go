package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("HOSTNAME", "host-a")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected dyno id, got %s", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "host-a")
	if got := GetID(); got != "host-a" {
		t.Fatalf("expected hostname, got %s", got)
	}
	t.Setenv("HOSTNAME", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local, got %s", got)
	}
}
