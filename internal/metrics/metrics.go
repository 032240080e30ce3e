package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conversation_messages_sent_total",
		Help: "Messages durably appended by the delivery coordinator",
	})
	MarkReads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conversation_mark_reads_total",
		Help: "Mark-as-read operations completed",
	})
	DenormFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conversation_denorm_failures_total",
		Help: "Sends where the message was written but the conversation-side update failed",
	})
	TypingActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conversation_typing_active",
		Help: "Typing entries currently tracked",
	})
)

func Init() {
	prometheus.MustRegister(MessagesSent, MarkReads, DenormFailures, TypingActive)
}

// Handler serves the Prometheus scrape endpoint on its own listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
