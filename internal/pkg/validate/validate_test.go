package validate

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "santa@northpole.example", want: true},
		{in: "  ", want: false},
		{in: "Santa <santa@northpole.example>", want: false},
		{in: "not-an-email", want: false},
	}
	for _, tt := range tests {
		if got := Email(tt.in); got != tt.want {
			t.Fatalf("Email(%q): got %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestUsername(t *testing.T) {
	if !Username("elf_01") {
		t.Fatalf("elf_01 should be valid")
	}
	for _, bad := range []string{"ab", "has space", "ünïcode", "this-name-is-way-too-long-for-a-handle"} {
		if Username(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestMaxRunes(t *testing.T) {
	if !MaxRunes("クリスマス", 5) {
		t.Fatalf("five runes should fit in five")
	}
	if MaxRunes("クリスマス!", 5) {
		t.Fatalf("six runes should not fit in five")
	}
}
