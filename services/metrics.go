package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linksIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qr_links_issued_total",
		Help: "Signed table links rendered into QR codes.",
	})

	// LinkRejections is incremented by the validate handler, which is where
	// the rejection reason is decided.
	LinkRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_link_rejections_total",
		Help: "Scanned links rejected before a session was created, by reason.",
	}, []string{"reason"})

	sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_sessions_total",
		Help: "Table session transitions, by event.",
	}, []string{"event"})

	guardResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_session_guard_total",
		Help: "Table session guard checks, by result.",
	}, []string{"result"})
)
