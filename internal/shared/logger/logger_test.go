package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_Level(t *testing.T) {
	testCases := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "", want: zerolog.InfoLevel},
		{level: "loud", want: zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			for _, dev := range []bool{true, false} {
				if got := New(dev, tc.level).GetLevel(); got != tc.want {
					t.Fatalf("devMode=%v: got %v, want %v", dev, got, tc.want)
				}
			}
		})
	}
}
