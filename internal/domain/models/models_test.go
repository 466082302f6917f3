package models

import "testing"

func TestDayOf(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-05T10:00:00.000Z", "2024-03-05"},
		{"2024-03-05T00:00:00+02:00", "2024-03-05"},
		{"2024-03-05", "2024-03-05"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DayOf(tt.input); got != tt.want {
				t.Errorf("DayOf(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUser_IsMaster(t *testing.T) {
	if !(User{Username: "master"}).IsMaster() {
		t.Error("expected master to be administrator")
	}
	if (User{Username: "mario"}).IsMaster() {
		t.Error("expected mario not to be administrator")
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (User{Username: "mario"}).DisplayName(); got != "mario" {
		t.Errorf("DisplayName() = %q, want %q", got, "mario")
	}
	if got := (User{Username: "mario", Name: "Mario Rossi"}).DisplayName(); got != "Mario Rossi" {
		t.Errorf("DisplayName() = %q, want %q", got, "Mario Rossi")
	}
}
