package passphrase

import "testing"

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv("FARM_TEST_PASS", "hunter22")
	src := NewSource("FARM_TEST_PASS")
	got, err := src.Get()
	if err != nil || got != "hunter22" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	t.Setenv("FARM_TEST_PASS", "changed")
	if again, _ := src.Get(); again != "hunter22" {
		t.Fatalf("expected cached passphrase, got %q", again)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("FARM_TEST_PASS", "   ")
	if _, err := NewSource("FARM_TEST_PASS").Get(); err == nil {
		t.Fatalf("expected error for blank passphrase")
	}
}
