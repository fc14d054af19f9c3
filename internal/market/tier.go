package market

import (
	"context"
	"log/slog"

	"github.com/AlexZinkM/custody-bot/internal/metrics"
)

// Tier names the freshness of a served value
type Tier string

const (
	TierFresh          Tier = "fresh"           // cached, younger than SHORT
	TierLive           Tier = "live"            // just fetched from a provider
	TierDegradedRecent Tier = "degraded-recent" // providers failed, cached younger than LONG
	TierDegradedStale  Tier = "degraded-stale"  // tertiary failed too, cached younger than ULTRA
	TierLastKnown      Tier = "last-known"      // cached, older than ULTRA
	TierDefault        Tier = "hardcoded-default"
	TierZeroPayload    Tier = "zero-payload" // token price unknown, metadata only
	TierFallbackRPC    Tier = "fallback-rpc"
)

const (
	resourceSOLPrice   = "sol_price"
	resourceTokenPrice = "token_price"
	resourceBalance    = "balance"
)

func (t Tier) level() slog.Level {
	switch t {
	case TierFresh, TierLive:
		return slog.LevelDebug
	case TierDegradedRecent, TierFallbackRPC, TierZeroPayload:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// served logs and counts the tier a response was served from
func (s *Service) served(ctx context.Context, resource string, tier Tier, attrs ...any) {
	metrics.MarketTierTotal.WithLabelValues(resource, string(tier)).Inc()
	s.log.Log(ctx, tier.level(), "Market data served", append([]any{"resource", resource, "tier", string(tier)}, attrs...)...)
}
