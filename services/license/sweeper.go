package license

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/task"
	"pos-licensing/pkg/timeutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper reconciles is_active with expiry_date for all licenses on a fixed
// interval. It is the only writer of that flag outside issuance/renewal;
// every other call site reads the cached flag and never re-derives the
// comparison.
type Sweeper struct {
	db       *gorm.DB
	repo     *Repository
	node     *snowflake.Node
	asynq    task.Enqueuer
	interval time.Duration

	now      func() time.Time
	inFlight atomic.Bool
	done     chan struct{}
	cancel   context.CancelFunc
}

type SweeperParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Asynq  task.Enqueuer `optional:"true"`
}

func NewSweeper(p SweeperParams) *Sweeper {
	interval := p.Config.License.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Sweeper{
		db:       p.DB,
		repo:     NewRepository(p.DB),
		node:     p.Node,
		asynq:    p.Asynq,
		interval: interval,
		now:      timeutil.NowStorage,
		done:     make(chan struct{}),
	}
}

// StartSweeper ties the sweep loop to the fx lifecycle: started exactly once
// at process start, stopped on graceful shutdown.
func StartSweeper(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			go s.run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.cancel()
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	zap.L().Info("[Sweeper] started license expiry sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			zap.L().Info("[Sweeper] stopped")
			return
		}
	}
}

// Tick runs one sweep pass. At most one sweep is ever in flight: a tick that
// fires while the previous is still running is skipped, not queued. A failed
// tick is logged and swallowed; the next tick retries on fresh state.
func (s *Sweeper) Tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		zap.L().Warn("[Sweeper] previous sweep still in flight, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	now := s.now()

	affected, expired, err := s.repo.SweepUpdate(ctx, now)
	if err != nil {
		zap.L().Error("[Sweeper] sweep failed", zap.Error(err))
		return
	}

	if affected == 0 {
		return
	}

	zap.L().Info("[Sweeper] reconciled licenses",
		zap.Int64("affected", affected),
		zap.Int("expired", len(expired)),
	)

	s.recordRun(ctx, now, affected, expired)

	for _, tenantID := range expired {
		if s.asynq == nil {
			continue
		}
		if _, err := s.asynq.Enqueue(NewExpiredTask(tenantID)); err != nil {
			zap.L().Error("[Sweeper] failed to enqueue expiry task",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
}

func (s *Sweeper) recordRun(ctx context.Context, now time.Time, affected int64, expired []string) {
	meta, _ := json.Marshal(expired)
	run := &SweepRun{
		ID:             s.node.Generate().String(),
		RanAt:          now,
		Affected:       affected,
		ExpiredTenants: meta,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		zap.L().Warn("[Sweeper] failed to record sweep run", zap.Error(err))
	}
}
