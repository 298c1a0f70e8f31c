package domain

import "strings"

// FeatureClass groups AI-assisted features that share a daily quota.
type FeatureClass string

const (
	FeatureVoice   FeatureClass = "VOICE"
	FeatureScan    FeatureClass = "SCAN"
	FeatureAdvisor FeatureClass = "ADVISOR"
)

// ParseFeatureClass accepts feature names case-insensitively.
func ParseFeatureClass(s string) (FeatureClass, bool) {
	switch FeatureClass(strings.ToUpper(strings.TrimSpace(s))) {
	case FeatureVoice:
		return FeatureVoice, true
	case FeatureScan:
		return FeatureScan, true
	case FeatureAdvisor:
		return FeatureAdvisor, true
	}
	return "", false
}

// Subscription tiers.
const (
	TierFree   = "free"
	TierPro    = "pro"
	TierSultan = "sultan"
)

// IsElevatedTier reports whether tier bypasses daily quotas.
func IsElevatedTier(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierPro, TierSultan:
		return true
	}
	return false
}
