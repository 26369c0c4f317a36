package persistence

import (
	"context"
	"testing"
)

func TestMemoryVaultMissIsNilNil(t *testing.T) {
	vault := NewMemoryVault()

	data, err := vault.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v, a miss must not be an error", err)
	}
	if data != nil {
		t.Errorf("Get() = %v, expected nil for a miss", data)
	}
}

func TestMemoryVaultRoundTrip(t *testing.T) {
	vault := NewMemoryVault()
	ctx := context.Background()

	if err := vault.Set(ctx, "greeting", []byte("hola")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, err := vault.Get(ctx, "greeting")
	if err != nil || string(data) != "hola" {
		t.Errorf("Get() = %q, %v, expected %q", data, err, "hola")
	}

	// Mutating the returned slice must not leak into the stored copy.
	data[0] = 'X'
	again, _ := vault.Get(ctx, "greeting")
	if string(again) != "hola" {
		t.Errorf("Get() after caller mutation = %q, expected stored copy intact", again)
	}

	if err := vault.Remove(ctx, "greeting"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if data, _ := vault.Get(ctx, "greeting"); data != nil {
		t.Errorf("Get() after Remove() = %v, expected a miss", data)
	}
}
