package health

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "farewatch/pkg/logx"
)

// Notifier speaks the sd_notify protocol. Outside systemd (no
// NOTIFY_SOCKET) every call is a no-op.
type Notifier struct {
	log     logx.Logger
	enabled bool
	notify  func(state string) (bool, error)
	// watchdog returns the WatchdogSec interval, or 0 when disabled.
	watchdog func() (time.Duration, error)
}

func NewNotifier(enabled bool, log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		log:      log.With(logx.String("comp", "systemd")),
		enabled:  enabled,
		notify:   func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		watchdog: func() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) },
	}
}

func (n *Notifier) send(state string) {
	if n == nil || !n.enabled {
		return
	}
	ok, err := n.notify(state)
	switch {
	case err != nil:
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case !ok:
		n.log.Debug("sd_notify not supported (no NOTIFY_SOCKET)", logx.String("state", state))
	}
}

func (n *Notifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) { n.send("STATUS=" + msg) }

// RunWatchdog pings the systemd watchdog at half its interval until ctx is
// done. It returns immediately when the watchdog is not configured.
func (n *Notifier) RunWatchdog(ctx context.Context) {
	if n == nil || !n.enabled {
		return
	}
	interval, err := n.watchdog()
	if err != nil {
		n.log.Warn("watchdog check failed", logx.Err(err))
		return
	}
	if interval <= 0 {
		return
	}
	tick := time.NewTicker(interval / 2)
	defer tick.Stop()
	n.log.Info("watchdog enabled", logx.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
