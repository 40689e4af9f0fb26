package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	sess := auth.Session{AccessToken: "secret-token", UserID: null.StringFrom("42"), UserName: null.StringFrom("Ana")}
	logger.Warn("refresh failed", errors.New("boom"), sess)

	out := buf.String()
	if !strings.Contains(out, "WARN refresh failed") || !strings.Contains(out, "boom") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "secret-token") || strings.Contains(out, "Ana") {
		t.Errorf("session leaked into the log: %q", out)
	}
}
