package server

import (
	"testing"
)

func TestGenerateRoomCode(t *testing.T) {
	usedCodes := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code := GenerateRoomCode(usedCodes)

		if err := ValidateRoomCode(code); err != nil {
			t.Errorf("generated invalid code %q: %v", code, err)
		}
		if usedCodes[code] {
			t.Errorf("generated duplicate code %q", code)
		}
		usedCodes[code] = true
	}
}

func TestValidateRoomCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid uppercase", "ABCD", false},
		{"valid lowercase", "abcd", false},
		{"too short", "ABC", true},
		{"too long", "ABCDE", true},
		{"empty", "", true},
		{"digits", "AB12", true},
		{"symbols", "AB-D", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	if got := NormalizeRoomCode("abcd"); got != "ABCD" {
		t.Errorf("NormalizeRoomCode(abcd) = %q, want ABCD", got)
	}
}
