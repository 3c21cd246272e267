package state

var (
	// DBG_log_beacon logs every beacon sent and received
	DBG_log_beacon = false
	// DBG_debug_addr serves /debug/metrics and /debug/vars on this address when set
	DBG_debug_addr = ""
)
