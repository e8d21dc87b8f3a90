package state

// Readable key layouts hashed into fixed-width storage keys. Keeping them in
// one place makes collisions auditable.
const (
	accountKeyFormat      = "account/%s"
	trackKeyFormat        = "track/%d"
	trackNextIDKey        = "track/next-id"
	pendingKeyFormat      = "revenue/pending/%s"
	revenueSourceFormat   = "revenue/source/%s"
	stakeKeyFormat        = "staking/lock/%s/%d"
	stakeIDsKeyFormat     = "staking/locks/%s"
	stakeNextIDKeyFormat  = "staking/next-id/%s"
	proposalKeyFormat     = "governance/proposal/%d"
	proposalNextIDKey     = "governance/next-id"
	voteKeyFormat         = "governance/vote/%d/%s"
	subscriptionKeyFormat = "access/subscription/%s"
	noteSupplyKey         = "note/total-supply"
	pauseKeyFormat        = "pause/%s"
)
