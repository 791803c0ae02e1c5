package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("ASM_TEST_VALUE", "   ")
	if got := Get("ASM_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("ASM_TEST_VALUE", "set")
	if got := Get("ASM_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestInstanceIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-7")
	if got := InstanceID(); got != "cron-7" {
		t.Fatalf("expected cron-7, got %q", got)
	}
}
