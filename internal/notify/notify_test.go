package notify_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/reporteria/reportviewer/internal/notify"
	"github.com/reporteria/reportviewer/internal/testutils"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	a := notify.New(notify.Success, "Reporte cargado")
	b := notify.New(notify.Success, "Reporte cargado")

	require.NotEmpty(t, a.ID, "Notification should have an ID")
	require.NotEqual(t, a.ID, b.ID, "Notification IDs should be unique")
	require.Equal(t, 5*time.Second, a.DismissAfter, "Notifications should auto-dismiss after 5 seconds")
	require.Equal(t, int64(5000), a.DismissAfterMillis())
}

func TestFromAlerts(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		alerts []viewmodel.Alert

		want []notify.Severity
	}{
		"No alerts":          {},
		"RAM is warning":     {alerts: []viewmodel.Alert{{Kind: viewmodel.AlertRAM, Message: "ram"}}, want: []notify.Severity{notify.Warning}},
		"Uptime is warning":  {alerts: []viewmodel.Alert{{Kind: viewmodel.AlertUptime, Message: "up"}}, want: []notify.Severity{notify.Warning}},
		"Collector is error": {alerts: []viewmodel.Alert{{Kind: viewmodel.AlertCollector, Message: "boom"}}, want: []notify.Severity{notify.Error}},
		"Order is kept": {
			alerts: []viewmodel.Alert{{Kind: viewmodel.AlertCollector}, {Kind: viewmodel.AlertRAM}},
			want:   []notify.Severity{notify.Error, notify.Warning},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got []notify.Severity
			for i, n := range notify.FromAlerts(tc.alerts) {
				require.Equal(t, tc.alerts[i].Message, n.Message, "Notification should carry the alert message")
				got = append(got, n.Severity)
			}
			require.Equal(t, tc.want, got, "FromAlerts returned unexpected severities")
		})
	}
}

func TestRAMAlertRaisesWarning(t *testing.T) {
	t.Parallel()

	for usage, want := range map[string]int{"85%": 1, "79%": 0} {
		vm := viewmodel.ViewModel{Memory: viewmodel.Memory{UsedPercent: usage}}
		ns := notify.FromAlerts(viewmodel.EvaluateAlerts(vm, viewmodel.DefaultThresholds()))
		require.Len(t, ns, want, "Unexpected notifications for RAM usage %s", usage)
		for _, n := range ns {
			require.Equal(t, notify.Warning, n.Severity)
		}
	}
}

func TestLog(t *testing.T) {
	t.Parallel()

	h := testutils.NewMockHandler()
	notify.Log(context.Background(), slog.New(h),
		notify.New(notify.Error, "error message"),
		notify.New(notify.Warning, "warning message"),
		notify.New(notify.Success, "success message"),
		notify.New(notify.Info, "info message"),
	)

	h.AssertRecords(t,
		testutils.ExpectedRecord{Level: slog.LevelError, Message: "error message"},
		testutils.ExpectedRecord{Level: slog.LevelWarn, Message: "warning message"},
		testutils.ExpectedRecord{Level: slog.LevelInfo, Message: "success message"},
		testutils.ExpectedRecord{Level: slog.LevelInfo, Message: "info message"},
	)
}

func TestQueue(t *testing.T) {
	t.Parallel()

	var q notify.Queue
	require.Empty(t, q.Drain(), "A new queue should be empty")

	first := notify.New(notify.Info, "first")
	second := notify.New(notify.Error, "second")
	third := notify.New(notify.Success, "third")
	q.Push(first, second)
	q.Push(third)

	require.Equal(t, []notify.Notification{first, second, third}, q.Drain(), "Drain should return pending notifications in order")
	require.Empty(t, q.Drain(), "Drain should empty the queue")
}
