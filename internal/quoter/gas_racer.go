package quoter

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

const (
	// GasEstimateTimeout bounds every gas-limit probe.
	GasEstimateTimeout = 5 * time.Second

	// DefaultApproveGasLimit is stamped onto approval calls when the
	// probe against the approve transaction fails. Sufficient for all
	// known ERC-20 approve implementations.
	DefaultApproveGasLimit uint64 = 120_000

	eventGasTimeout = "gas_estimation_timeout"
)

// GasRacer races a gas-limit probe against a fixed timer and always
// produces exactly one outcome per call. The losing side is cancelled
// and can no longer influence the result.
type GasRacer struct {
	probe   domain.GasProbe
	tracker domain.Tracker
	clock   Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewGasRacer creates a GasRacer with the standard timeout.
func NewGasRacer(probe domain.GasProbe, tracker domain.Tracker, clock Clock, logger *slog.Logger) *GasRacer {
	return &GasRacer{
		probe:   probe,
		tracker: tracker,
		clock:   clock,
		timeout: GasEstimateTimeout,
		logger:  logger,
	}
}

// Estimate resolves a gas limit for the given call, or a failed
// simulation if the probe errors or the timer fires first. Probe errors
// and timeouts are deliberately indistinguishable in the result; the
// underlying error is only logged.
func (r *GasRacer) Estimate(ctx context.Context, call domain.TradeCall, client domain.NetworkClient, aggregatorID string) domain.GasSimulation {
	// Any aggregator-supplied gas value is stripped so the node
	// estimates from scratch; passing it along can make the estimate
	// fail when actual usage exceeds it.
	probeCall := call
	probeCall.Gas = 0

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		sim domain.GasSimulation
		err error
	}
	results := make(chan outcome, 1)
	go func() {
		sim, err := r.probe.Simulate(probeCtx, probeCall, client)
		results <- outcome{sim: sim, err: err}
	}()

	timer := r.clock.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case out := <-results:
		if out.err != nil {
			r.logger.Warn("gas probe failed",
				slog.String("aggregator", aggregatorID),
				slog.String("error", out.err.Error()),
			)
			return domain.GasSimulation{SimulationFailed: true}
		}
		return out.sim
	case <-timer.C():
		go r.tracker.Track(eventGasTimeout, map[string]any{"aggregator": aggregatorID})
		return domain.GasSimulation{SimulationFailed: true}
	case <-ctx.Done():
		return domain.GasSimulation{SimulationFailed: true}
	}
}

// GasEstimateWithRefund applies the aggregator's estimated refund to a
// probed gas limit, clamped so the result never exceeds the quote's
// max gas minus the refund.
func GasEstimateWithRefund(maxGas, estimatedRefund, estimate uint64) uint64 {
	if maxGas >= estimatedRefund {
		if capped := maxGas - estimatedRefund; capped < estimate {
			return capped
		}
	}
	return estimate
}
