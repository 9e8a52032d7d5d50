package usecase

import (
	"context"
	"fmt"

	"fled-backend/internal/notification/domain"
	"fled-backend/pkg/logger"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// BatchSize stays below the provider's 500-token multicast ceiling.
const BatchSize = 450

// Sender is the push provider
type Sender interface {
	SendMulticast(ctx context.Context, payload domain.Payload, tokens []string) ([]domain.SendResult, error)
}

// Purger removes stale tokens from storage
type Purger interface {
	Purge(ctx context.Context, tokens []string)
}

// Dispatcher delivers a payload to a token set in bounded batches
type Dispatcher struct {
	sender  Sender
	purger  Purger
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher. batchRPS > 0 paces provider calls;
// purger may be nil to skip stale-token cleanup.
func NewDispatcher(sender Sender, purger Purger, batchRPS float64, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		purger: purger,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
	if batchRPS > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(batchRPS), 1)
	}
	return d
}

// Dispatch sends payload to tokens. A failing batch is counted as failed in
// full and does not stop the remaining batches. Stale tokens reported by the
// provider are purged once, after every batch has settled.
func (d *Dispatcher) Dispatch(ctx context.Context, payload domain.Payload, tokens []string) domain.DispatchResult {
	var result domain.DispatchResult

	tokens = uniqueNonEmpty(tokens)
	if len(tokens) == 0 {
		return result
	}

	// In-flight batches are never aborted by the caller going away.
	ctx = context.WithoutCancel(ctx)

	var invalid []string
	seenInvalid := make(map[string]struct{})

	for start := 0; start < len(tokens); start += BatchSize {
		end := min(start+BatchSize, len(tokens))
		batch := tokens[start:end]
		log := d.logger.With().Int("batch_start", start).Int("batch_size", len(batch)).Logger()

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				log.Error().Err(err).Msg("rate limiter rejected batch")
				result.Failed += len(batch)
				continue
			}
		}

		results, err := d.sendBatch(ctx, payload, batch)
		if err != nil {
			log.Error().Err(err).Msg("batch send error")
			result.Failed += len(batch)
			continue
		}

		if payloadRejected(batch, results) {
			log.Error().Err(results[0].Err).Msg("provider rejected every token in batch, payload likely invalid")
			result.Failed += len(batch)
			continue
		}

		sent, failed := 0, 0
		for _, res := range results {
			if res.Success {
				sent++
				continue
			}
			failed++
			if res.Code.Stale() {
				if _, ok := seenInvalid[res.Token]; !ok {
					seenInvalid[res.Token] = struct{}{}
					invalid = append(invalid, res.Token)
				}
				continue
			}
			log.Debug().Err(res.Err).Str("token", logger.ShortToken(res.Token)).Str("code", string(res.Code)).Msg("token delivery failed")
		}
		if missing := len(batch) - len(results); missing > 0 {
			failed += missing
		}
		result.Sent += sent
		result.Failed += failed
		log.Info().Int("success", sent).Int("failures", failed).Msg("multicast sent")
	}

	if len(invalid) > 0 {
		result.InvalidTokens = invalid
		if d.purger != nil {
			d.logger.Info().Int("tokens", len(invalid)).Msg("cleaning up invalid tokens")
			d.purger.Purge(ctx, invalid)
		}
	}
	return result
}

// sendBatch turns a provider panic into a batch error.
func (d *Dispatcher) sendBatch(ctx context.Context, payload domain.Payload, batch []string) (results []domain.SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return d.sender.SendMulticast(ctx, payload, batch)
}

// payloadRejected reports a multi-token batch in which every token came back
// as invalid. The provider returns the same code for a malformed message, so
// such a batch is not evidence that the tokens are stale.
func payloadRejected(batch []string, results []domain.SendResult) bool {
	if len(batch) < 2 || len(results) != len(batch) {
		return false
	}
	for _, res := range results {
		if res.Success || res.Code != domain.ErrorCodeInvalidToken {
			return false
		}
	}
	return true
}
