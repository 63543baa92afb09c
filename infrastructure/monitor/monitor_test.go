package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCloseOrderMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordCloseOrder("close_grid_long")
	m.RecordCloseOrder("close_grid_long")
	m.RecordCloseOrder("close_trailing_short")

	if got := testutil.ToFloat64(m.closeOrders.WithLabelValues("close_grid_long")); got != 2 {
		t.Errorf("expected close_orders[close_grid_long] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.closeOrders.WithLabelValues("close_trailing_short")); got != 1 {
		t.Errorf("expected close_orders[close_trailing_short] to be 1, got %f", got)
	}
}

func TestFillMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordFill("close_grid_long", 103.0)
	m.RecordFill("close_grid_long", 206.0)

	if got := testutil.ToFloat64(m.fillsTotal.WithLabelValues("close_grid_long")); got != 2 {
		t.Errorf("expected fills_total to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.filledVolume.WithLabelValues("close_grid_long")); got != 309.0 {
		t.Errorf("expected filled_volume to be 309, got %f", got)
	}
}

func TestExposureAndPnLMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.UpdateWalletExposure("BTCUSDT", "long", 0.35)
	m.UpdateLadderSize("BTCUSDT", "long", 4)
	m.UpdatePnL(80, 100)
	m.UpdateBalance(100000)

	if got := testutil.ToFloat64(m.walletExposure.WithLabelValues("BTCUSDT", "long")); got != 0.35 {
		t.Errorf("expected wallet_exposure to be 0.35, got %f", got)
	}
	if got := testutil.ToFloat64(m.closeLadderSize.WithLabelValues("BTCUSDT", "long")); got != 4 {
		t.Errorf("expected close_ladder_size to be 4, got %f", got)
	}
	if got := testutil.ToFloat64(m.pnlDrawdwn); got != 20 {
		t.Errorf("expected pnl_drawdown to be 20, got %f", got)
	}
	if got := testutil.ToFloat64(m.balance); got != 100000 {
		t.Errorf("expected balance to be 100000, got %f", got)
	}
}

func TestUnstuckMetrics(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordUnstuckTrigger("long")
	m.RecordUnstuckTrigger("long")
	m.UpdateUnstuckAllowance(4.2)

	if got := testutil.ToFloat64(m.unstuckTriggers.WithLabelValues("long")); got != 2 {
		t.Errorf("expected unstuck_triggers[long] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.unstuckAllowance); got != 4.2 {
		t.Errorf("expected unstuck_allowance to be 4.2, got %f", got)
	}
}
