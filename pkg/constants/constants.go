package constants

// Well-known actor recorded on escrow transitions performed by the platform
// itself (automatic timeout release, operator tooling).
const (
	ActorSystemID = "00000000-0000-0000-0000-000000000001"
)
