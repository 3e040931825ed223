package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"calendar day", "2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, seoul), false},
		{"rfc3339", "2024-05-01T10:30:00Z", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), false},
		{"rfc3339 millis", "2024-05-01T10:30:00.250+09:00", time.Date(2024, 5, 1, 1, 30, 0, 250_000_000, time.UTC), false},
		{"garbage", "yesterday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, seoul)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	// 2024-05-01 20:00 UTC is already 2024-05-02 in Seoul
	instant := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	start := StartOfDay(instant, seoul)
	if want := time.Date(2024, 5, 2, 0, 0, 0, 0, seoul); !start.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", start, want)
	}

	end := EndOfDay(instant, seoul)
	if want := time.Date(2024, 5, 2, 23, 59, 59, 999_000_000, seoul); !end.Equal(want) {
		t.Errorf("EndOfDay = %v, want %v", end, want)
	}
}
