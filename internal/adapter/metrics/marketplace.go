package metrics

import "github.com/prometheus/client_golang/prometheus"

// MarketplaceMetrics counts user-facing marketplace events.
type MarketplaceMetrics struct {
	SignupAttempts  *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
	ListingsCreated prometheus.Counter
	FavoriteChanges *prometheus.CounterVec
	MessagesSent    prometheus.Counter
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	m := &MarketplaceMetrics{
		SignupAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signup_attempts_total",
			Help:      "Total number of signup attempts, by result.",
		}, []string{"result"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts, by result.",
		}, []string{"result"}),
		ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		FavoriteChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorite_changes_total",
			Help:      "Total number of favorites added or removed, by action.",
		}, []string{"action"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of direct messages sent.",
		}),
	}

	reg.MustRegister(m.SignupAttempts, m.LoginAttempts, m.ListingsCreated, m.FavoriteChanges, m.MessagesSent)
	return m
}

func (m *MarketplaceMetrics) SignupAttempt(result string) {
	m.SignupAttempts.WithLabelValues(result).Inc()
}

func (m *MarketplaceMetrics) LoginAttempt(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *MarketplaceMetrics) ListingCreated() {
	m.ListingsCreated.Inc()
}

func (m *MarketplaceMetrics) FavoriteChanged(action string) {
	m.FavoriteChanges.WithLabelValues(action).Inc()
}

func (m *MarketplaceMetrics) MessageSent() {
	m.MessagesSent.Inc()
}
