package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/estoque-api/internal/domain"
)

const tracerName = "github.com/jhoicas/estoque-api/internal/application/inventory"

// Service motor de inventario: movimientos, reservas, expiración y consultas.
// Toda mutación ocurre dentro de una transacción con bloqueo de fila sobre la línea de stock.
type Service struct {
	tx      TxRunner
	read    Repos
	orgs    OrganizationResolver
	access  OrgAccess
	metrics *Metrics
	log     zerolog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configura el servicio.
type Option func(*Service)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics registra contadores Prometheus.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger define el logger del servicio.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithTracer define el tracer; por defecto el del provider global.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService construye el motor. read son repositorios fuera de transacción para consultas.
func NewService(tx TxRunner, read Repos, orgs *OrgContext, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		read:   read,
		orgs:   orgs,
		access: orgs,
		log:    zerolog.Nop(),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "inventory."+name, trace.WithAttributes(attrs...))
}

// finish cierra el span y cuenta el error por código.
func (s *Service) finish(span trace.Span, op string, err error) {
	if err != nil {
		code := domain.Code(err)
		span.SetAttributes(attribute.String("error.code", code))
		span.SetStatus(codes.Error, code)
		s.metrics.failed(op, code)
		if code == domain.CodeInternal || code == domain.CodeLockTimeout {
			s.log.Error().Err(err).Str("op", op).Msg("operación de inventario fallida")
		}
	}
	span.End()
}

func (s *Service) resolveOrg(ctx context.Context, caller Caller, requested string) (string, error) {
	return s.orgs.EffectiveOrganization(ctx, caller, requested)
}

// optionalRef recorta el documento de referencia; vacío = nil.
func optionalRef(ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	return &ref
}

// normalizeLot trata un lote en blanco como "sin lote".
func normalizeLot(lot *string) *string {
	if lot == nil {
		return nil
	}
	v := strings.TrimSpace(*lot)
	if v == "" {
		return nil
	}
	return &v
}
