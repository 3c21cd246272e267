package state

import "time"

var (
	// MaxNeighbours is the default neighbour table capacity
	MaxNeighbours = 5
	// LivenessReset is the number of prune ticks a neighbour survives without being heard
	LivenessReset = 3

	BeaconInterval = time.Second * 8
	PruneInterval  = time.Second * 16

	// DropNoticeTTL limits how often a dropped candidate is logged
	DropNoticeTTL = time.Second * 16

	// DispatchBuffer is the depth of the main loop dispatch queue
	DispatchBuffer = 128

	// default UDP beacon port
	DefaultPort = 57129
	// DefaultRSSI is reported by transports that cannot measure signal strength
	DefaultRSSI = int8(-60)
)

// BeaconPayload is sent verbatim with every beacon, it carries no data
var BeaconPayload = []byte("Hello\x00")
