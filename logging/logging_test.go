package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/threecommaio/bitly/core"
)

func TestSetLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}
	if err := SetLevel("loud"); !errors.Is(err, ErrParseLogLevel) {
		t.Errorf("Expected ErrParseLogLevel, got %v", err)
	}
}

func TestProductionFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(Formatter(core.Production))
	logger.AddHook(NewExtraFieldHook("bitly", core.Production))

	logger.Info("shortened")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %s", buf.String(), err)
	}
	if entry["message"] != "shortened" || entry["severity"] != "info" {
		t.Errorf("Unexpected field mapping: %v", entry)
	}
	if entry["service"] != "bitly" || entry["env"] != core.Production {
		t.Errorf("Missing extra fields: %v", entry)
	}
}
