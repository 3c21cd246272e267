package state

import "fmt"

// Neighbour is the observed state of one peer heard over the air
type Neighbour struct {
	Addr Addr
	// RSSI of the most recently received beacon
	RSSI int8
	// RxCount is the number of beacons received since the neighbour entered the table
	RxCount int
	// TxCount is the number of our own beacons sent while the neighbour was present
	TxCount int
	// PRR is the packet reception rate in percent, as of the last received beacon
	PRR int
	// Liveness counts down once per prune tick, the neighbour is evicted at zero
	Liveness int
}

func (n Neighbour) String() string {
	return fmt.Sprintf("%s rssi=%d rx=%d tx=%d prr=%d live=%d", n.Addr, n.RSSI, n.RxCount, n.TxCount, n.PRR, n.Liveness)
}

func (n *Neighbour) updatePRR() {
	if n.TxCount > 0 {
		n.PRR = n.RxCount * 100 / n.TxCount
	}
}
