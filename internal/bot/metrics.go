package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// botSends tracks outbound Telegram API calls by kind and outcome.
	botSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teleshop_bot_sends_total",
		Help: "Total outbound Telegram API calls",
	}, []string{"kind", "status"}) // kind: "message", "callback", ...; status: "ok", "error"

	// botSendRetries tracks send retry attempts.
	botSendRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teleshop_bot_send_retries_total",
		Help: "Total bot send retry attempts",
	})

	// botActiveChats tracks chats with an in-flight update handler.
	botActiveChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teleshop_bot_active_chats",
		Help: "Number of chats with an update handler in flight",
	})
)
