package alert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	defer f.Close()

	ch := NewLogChannel("file", f)
	mgr := NewManager([]Channel{ch}, time.Minute)
	if err := mgr.DrawdownExceeded(0.4, 0.3); err != nil {
		t.Fatalf("DrawdownExceeded failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[CRITICAL]") || !strings.Contains(out, "drawdown=0.4") {
		t.Errorf("unexpected log line: %q", out)
	}
}

func TestNewManager(t *testing.T) {
	ch := NewMockChannel("test")
	mgr := NewManager([]Channel{ch}, 5*time.Minute)

	if mgr == nil {
		t.Fatal("manager should not be nil")
	}

	channels := mgr.GetChannels()
	if len(channels) != 1 {
		t.Errorf("expected 1 channel, got %d", len(channels))
	}
	if channels[0] != "test" {
		t.Errorf("channel name = %s, want test", channels[0])
	}
}

func TestSendAlert(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 5*time.Minute)

	err := mgr.SendAlert(Alert{
		Level:   "INFO",
		Message: "test message",
		Fields:  map[string]interface{}{"key": "value"},
	})

	if err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}
	if mock.Count() != 1 {
		t.Errorf("expected 1 alert, got %d", mock.Count())
	}

	alert := mock.GetAlerts()[0]
	if alert.Level != "INFO" {
		t.Errorf("level = %s, want INFO", alert.Level)
	}
	if alert.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestUnstuckTriggered(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Minute)

	if err := mgr.UnstuckTriggered("BTCUSDT", "long", 4.2); err != nil {
		t.Fatalf("UnstuckTriggered failed: %v", err)
	}
	if mock.Count() != 1 {
		t.Fatalf("expected 1 alert, got %d", mock.Count())
	}
	alert := mock.GetAlerts()[0]
	if alert.Level != "WARNING" {
		t.Errorf("level = %s, want WARNING", alert.Level)
	}
	if alert.Fields["symbol"] != "BTCUSDT" || alert.Fields["allowance"] != 4.2 {
		t.Errorf("unexpected fields: %v", alert.Fields)
	}
}

func TestAllowanceExhausted(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Minute)

	if err := mgr.AllowanceExhausted("BTCUSDT", 12.0, 10.0); err != nil {
		t.Fatalf("AllowanceExhausted failed: %v", err)
	}
	alert := mock.GetAlerts()[0]
	if alert.Level != "ERROR" {
		t.Errorf("level = %s, want ERROR", alert.Level)
	}
	if alert.Fields["drawdown"] != 12.0 {
		t.Errorf("unexpected fields: %v", alert.Fields)
	}
}

func TestDrawdownExceeded(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Minute)

	if err := mgr.DrawdownExceeded(0.35, 0.3); err != nil {
		t.Fatalf("DrawdownExceeded failed: %v", err)
	}
	alert := mock.GetAlerts()[0]
	if alert.Level != "CRITICAL" {
		t.Errorf("level = %s, want CRITICAL", alert.Level)
	}
	if alert.Fields["limit"] != 0.3 {
		t.Errorf("unexpected fields: %v", alert.Fields)
	}
}

func TestThrottleSuppressesRepeats(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Hour)

	// 同一告警在限流窗口内只投递一次
	for i := 0; i < 3; i++ {
		if err := mgr.UnstuckTriggered("BTCUSDT", "long", 1.0); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	if mock.Count() != 1 {
		t.Errorf("expected 1 alert after throttling, got %d", mock.Count())
	}

	// 不同 symbol 的告警 key 不同，不受影响
	if err := mgr.UnstuckTriggered("ETHUSDT", "long", 1.0); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if mock.Count() != 2 {
		t.Errorf("expected 2 alerts, got %d", mock.Count())
	}

	mgr.ResetThrottle()
	if err := mgr.UnstuckTriggered("BTCUSDT", "long", 1.0); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if mock.Count() != 3 {
		t.Errorf("expected 3 alerts after reset, got %d", mock.Count())
	}
}

func TestAllChannelsFailed(t *testing.T) {
	mock := NewMockChannel("mock")
	mock.SetShouldError(true)
	mgr := NewManager([]Channel{mock}, 0)

	if err := mgr.SendError("boom", nil); err == nil {
		t.Error("expected error when all channels fail")
	}
}

func TestAddRemoveChannel(t *testing.T) {
	mgr := NewManager(nil, 0)
	mgr.AddChannel(NewMockChannel("a"))
	mgr.AddChannel(NewMockChannel("b"))
	mgr.RemoveChannel("a")

	channels := mgr.GetChannels()
	if len(channels) != 1 || channels[0] != "b" {
		t.Errorf("unexpected channels: %v", channels)
	}
}
