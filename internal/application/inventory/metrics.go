package inventory

import "github.com/prometheus/client_golang/prometheus"

// Metrics contadores del motor. Un *Metrics nil no registra nada.
type Metrics struct {
	movements   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	expireBatch prometheus.Histogram
	drift       prometheus.Gauge
}

// NewMetrics crea y registra las métricas en reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estoque_movements_total",
			Help: "Movimientos de stock registrados por tipo.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estoque_reservation_transitions_total",
			Help: "Transiciones de reserva por estado destino.",
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estoque_operation_errors_total",
			Help: "Operaciones fallidas por operación y código.",
		}, []string{"op", "code"}),
		expireBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "estoque_expire_batch_size",
			Help:    "Reservas expiradas por lote.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 200, 500, 1000},
		}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "estoque_reserved_drift_lines",
			Help: "Líneas cuyo reservado difiere de la suma de reservas activas en la última auditoría.",
		}),
	}
	reg.MustRegister(m.movements, m.transitions, m.errors, m.expireBatch, m.drift)
	return m
}

func (m *Metrics) movement(kind string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(kind).Inc()
}

func (m *Metrics) transition(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.transitions.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) failed(op, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, code).Inc()
}

func (m *Metrics) batch(n int) {
	if m == nil {
		return
	}
	m.expireBatch.Observe(float64(n))
}

func (m *Metrics) setDrift(n int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(n))
}
