package testfixtures

import "testing"

func TestIDGenerator_SequencesWithPrefix(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("assignment")
	if got := gen.Next(); got != "assignment-1" {
		t.Fatalf("expected assignment-1, got %q", got)
	}
	if got := gen.Next(); got != "assignment-2" {
		t.Fatalf("expected assignment-2, got %q", got)
	}
}

func TestIDGenerator_EmptyPrefixDefaults(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("")
	if got := gen.Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
}

func TestIDGenerator_SetCounter(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("event")
	gen.SetCounter(41)
	if got := gen.Next(); got != "event-42" {
		t.Fatalf("expected event-42, got %q", got)
	}
}
