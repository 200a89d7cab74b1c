// Package tier maps subscription tiers to their quota and expiry limits.
package tier

import "strings"

type Tier string

const (
	Free    Tier = "free"
	Premium Tier = "premium"
)

type Limits struct {
	MaxStorageMB            int64
	MaxFileSizeMB           int64
	MaxUploadFiles          int
	MaxRequestsPerMonth     int
	AllowsTeamAccess        bool
	AllowsAdvancedAnalytics bool
	ExpiryDays              int
}

var limitsTable = map[Tier]Limits{
	Free: {
		MaxStorageMB:        100,
		MaxFileSizeMB:       10,
		MaxUploadFiles:      5,
		MaxRequestsPerMonth: 10,
		ExpiryDays:          7,
	},
	Premium: {
		MaxStorageMB:            1000,
		MaxFileSizeMB:           100,
		MaxUploadFiles:          100,
		MaxRequestsPerMonth:     100,
		AllowsTeamAccess:        true,
		AllowsAdvancedAnalytics: true,
		ExpiryDays:              30,
	},
}

// LimitsFor is total: any unknown tier falls back to the free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := limitsTable[t]; ok {
		return l
	}
	return limitsTable[Free]
}

// Parse normalizes a stored tier value. Unknown values map to Free.
func Parse(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Premium:
		return Premium
	default:
		return Free
	}
}

func (l Limits) MaxFileSizeBytes() int64 {
	return l.MaxFileSizeMB * 1024 * 1024
}

func (l Limits) MaxStorageBytes() int64 {
	return l.MaxStorageMB * 1024 * 1024
}
