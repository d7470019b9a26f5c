package models

import "strings"

type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierMaster  Tier = "master"
)

// AllTiers is ordered from lowest to highest.
var AllTiers = []Tier{TierFree, TierStarter, TierPro, TierMaster}

var tierRank = map[Tier]int{
	TierFree:    0,
	TierStarter: 1,
	TierPro:     2,
	TierMaster:  3,
}

// Rank returns the ordinal of the tier, or -1 for an unknown tier.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Purchasable reports whether the tier can be bought through checkout.
func (t Tier) Purchasable() bool {
	return t.Valid() && t != TierFree
}

// HasAccess reports whether a user on tier `user` may view content requiring `required`.
// Unknown tiers never grant access and are never satisfied.
func HasAccess(user, required Tier) bool {
	ur, rr := user.Rank(), required.Rank()
	if ur < 0 || rr < 0 {
		return false
	}
	return ur >= rr
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}
