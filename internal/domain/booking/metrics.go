package booking

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters for the booking engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	bookings       *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	availability   *prometheus.HistogramVec
	reserveLatency prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberia",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberia",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle transitions by action and result",
		}, []string{"action", "result"}),
		availability: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "barberia",
			Subsystem: "booking",
			Name:      "available_slots",
			Help:      "Number of free slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24},
		}, []string{"open"}),
		reserveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "barberia",
			Subsystem: "booking",
			Name:      "reserve_seconds",
			Help:      "Time spent inside the per-date reservation section",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.transitions, m.availability, m.reserveLatency)
	return m
}

// ObserveBooking records outcome: confirmed, pending, conflict, invalid,
// not_found or error.
func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTransition(action Action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(action), result).Inc()
}

func (m *Metrics) ObserveAvailability(open bool, slots int) {
	if m == nil {
		return
	}
	label := "false"
	if open {
		label = "true"
	}
	m.availability.WithLabelValues(label).Observe(float64(slots))
}

func (m *Metrics) ObserveReserve(seconds float64) {
	if m == nil {
		return
	}
	m.reserveLatency.Observe(seconds)
}
