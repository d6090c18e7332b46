package domain

// Subscription tiers, cheapest first. The budget gate names the next tier
// up when a limit is hit so the dashboard can render an upgrade prompt.
const (
	TierFree    = "free"
	TierStarter = "starter"
	TierPro     = "pro"
	TierScale   = "scale"
)

var tierOrder = []string{TierFree, TierStarter, TierPro, TierScale}

// NextTier returns the tier above the given one, or "" when already at the
// top (or the tier is unknown).
func NextTier(tier string) string {
	for i, t := range tierOrder {
		if t == tier && i+1 < len(tierOrder) {
			return tierOrder[i+1]
		}
	}
	return ""
}
