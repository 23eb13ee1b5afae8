package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	sweepLockKey  = "estoque:sweeper:leader"
	minSweepLease = 30 * time.Second
)

// LeaderLock exclusión entre instancias para el barrido. ok=false si otra instancia lo tiene.
type LeaderLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Lease lock obtenido. Refresh extiende el vencimiento; falla si el lock ya se perdió.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context)
}

// Sweeper expira periódicamente las reservas vencidas de todas las organizaciones.
type Sweeper struct {
	svc      *Service
	lock     LeaderLock
	interval time.Duration
	maxItems int
	maxOrgs  int
	log      zerolog.Logger
}

// NewSweeper lock puede ser nil (instancia única).
func NewSweeper(svc *Service, lock LeaderLock, interval time.Duration, maxItems int, log zerolog.Logger) *Sweeper {
	if maxItems <= 0 || maxItems > MaxExpireMaxItems {
		maxItems = DefaultExpireMaxItems
	}
	return &Sweeper{svc: svc, lock: lock, interval: interval, maxItems: maxItems, maxOrgs: 100, log: log}
}

// Run ejecuta SweepOnce en cada tick hasta que ctx termine.
func (sw *Sweeper) Run(ctx context.Context) error {
	if sw.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := sw.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				sw.log.Error().Err(err).Msg("barrido de reservas fallido")
			}
		}
	}
}

// SweepOnce una pasada: un lote por organización con reservas vencidas. Devuelve el total expirado.
// Con lock, el lease se renueva mientras dura la pasada; si se pierde, la pasada se corta.
func (sw *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if sw.lock != nil {
		ttl := sw.leaseTTL()
		lease, ok, err := sw.lock.TryLock(ctx, sweepLockKey, ttl)
		if err != nil {
			return 0, fmt.Errorf("obtain sweeper lock: %w", err)
		}
		if !ok {
			sw.log.Debug().Msg("barrido en curso en otra instancia")
			return 0, nil
		}
		defer lease.Release(context.WithoutCancel(ctx))

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		done := make(chan struct{})
		defer func() {
			cancel()
			<-done
		}()
		go func() {
			defer close(done)
			sw.keepAlive(ctx, lease, ttl, cancel)
		}()
	}

	orgs, err := sw.svc.read.Reservations.OrganizationsWithDue(ctx, sw.svc.now(), sw.maxOrgs)
	if err != nil {
		return 0, fmt.Errorf("list organizations with due reservations: %w", err)
	}
	total := 0
	for _, org := range orgs {
		if ctx.Err() != nil {
			sw.log.Warn().Msg("barrido interrumpido: lock de líder perdido o contexto cancelado")
			break
		}
		res, err := sw.svc.sweepOrganization(ctx, org, sw.maxItems)
		if err != nil {
			// una organización con contención no detiene a las demás
			sw.log.Warn().Err(err).Str("organization_id", org).Msg("no se pudo expirar el lote")
			continue
		}
		total += res.TotalProcessed
	}
	return total, nil
}

// keepAlive renueva el lease cada ttl/3 hasta que ctx termine. Si la renovación falla cancela la pasada.
func (sw *Sweeper) keepAlive(ctx context.Context, lease Lease, ttl time.Duration, cancel context.CancelFunc) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lease.Refresh(ctx, ttl); err != nil {
				if ctx.Err() == nil {
					sw.log.Warn().Err(err).Msg("no se pudo renovar el lock de barrido")
				}
				cancel()
				return
			}
		}
	}
}

// leaseTTL el intervalo, con un mínimo para que la renovación no compita con la pasada.
func (sw *Sweeper) leaseTTL() time.Duration {
	return max(sw.interval, minSweepLease)
}
