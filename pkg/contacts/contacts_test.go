package contacts

import (
	"context"
	"testing"
)

func TestStaticStore_ReturnsConfiguredSet(t *testing.T) {
	s := NewStatic("+15551112222", []string{"+15553334444", "+15555556666"})

	set, err := s.Contacts(context.Background())
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if set.Primary != "+15551112222" {
		t.Errorf("Primary = %q, want %q", set.Primary, "+15551112222")
	}
	if len(set.Secondary) != 2 {
		t.Fatalf("Secondary length = %d, want 2", len(set.Secondary))
	}
}

func TestStaticStore_CallersCannotMutate(t *testing.T) {
	input := []string{"+15553334444"}
	s := NewStatic("+15551112222", input)

	// Mutating the input slice after construction must not leak in.
	input[0] = "changed"
	set, _ := s.Contacts(context.Background())
	if set.Secondary[0] != "+15553334444" {
		t.Errorf("Secondary[0] = %q, want %q", set.Secondary[0], "+15553334444")
	}

	// Mutating a returned set must not leak back.
	set.Secondary[0] = "changed"
	again, _ := s.Contacts(context.Background())
	if again.Secondary[0] != "+15553334444" {
		t.Errorf("Secondary[0] after mutation = %q, want %q", again.Secondary[0], "+15553334444")
	}
}

func TestStaticStore_EmptySet(t *testing.T) {
	s := NewStatic("", nil)
	set, err := s.Contacts(context.Background())
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if set.Primary != "" {
		t.Errorf("Primary = %q, want empty", set.Primary)
	}
	if len(set.Secondary) != 0 {
		t.Errorf("Secondary length = %d, want 0", len(set.Secondary))
	}
}
