package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestResolveLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		conf Config
		want zerolog.Level
	}{
		{name: "default", conf: Config{}, want: zerolog.InfoLevel},
		{name: "debug flag", conf: Config{Debug: true}, want: zerolog.DebugLevel},
		{name: "explicit level wins", conf: Config{Debug: true, Level: "WARN"}, want: zerolog.WarnLevel},
		{name: "unknown level", conf: Config{Level: "chatty"}, want: zerolog.InfoLevel},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveLevel(tc.conf); got != tc.want {
				t.Fatalf("resolveLevel = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewWritesServiceField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "router-test"})
	logger.Info().Msg("hello")
	logger.Debug().Msg("filtered")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "router-test" || entry["message"] != "hello" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
