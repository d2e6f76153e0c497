package daemon

import (
	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/pagewatch/pagewatch/internal/logger"
)

// Readiness notifications for Type=notify units. SdNotify is a no-op when
// NOTIFY_SOCKET is unset, so running outside systemd costs nothing.

func notifyReady(log *logger.Logger) {
	notify(log, sd.SdNotifyReady)
}

func notifyReloading(log *logger.Logger) {
	notify(log, sd.SdNotifyReloading)
}

func notifyStopping(log *logger.Logger) {
	notify(log, sd.SdNotifyStopping)
}

func notify(log *logger.Logger, state string) {
	if _, err := sd.SdNotify(false, state); err != nil {
		log.Debug("sd_notify failed",
			logger.Field{Key: "state", Value: state},
			logger.Field{Key: "error", Value: err.Error()})
	}
}
