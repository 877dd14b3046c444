package credentials

import "testing"

func TestGeneratePIN(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		pin, err := GeneratePIN()
		if err != nil {
			t.Fatalf("GeneratePIN() error = %v", err)
		}
		if len(pin) != PINLength {
			t.Fatalf("GeneratePIN() length = %d, want %d", len(pin), PINLength)
		}
		for _, c := range pin {
			if c < '0' || c > '9' {
				t.Fatalf("GeneratePIN() returned non-digit %q in %q", c, pin)
			}
		}
		seen[pin] = true
	}
	// 50 draws from 10000 values all colliding would point at a broken source
	if len(seen) < 2 {
		t.Error("GeneratePIN() returned the same PIN 50 times")
	}
}

func TestRandomAvatarColor(t *testing.T) {
	allowed := map[string]bool{}
	for _, c := range avatarColors {
		allowed[c] = true
	}
	for i := 0; i < 20; i++ {
		color, err := RandomAvatarColor()
		if err != nil {
			t.Fatalf("RandomAvatarColor() error = %v", err)
		}
		if !allowed[color] {
			t.Fatalf("RandomAvatarColor() returned unknown color %q", color)
		}
	}
}
