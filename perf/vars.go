package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency    = metric.NewHistogram("1m1s")
	BeaconsSent        = metric.NewCounter("1m10s")
	BeaconsReceived    = metric.NewCounter("1m10s")
	BeaconSendErrors   = metric.NewCounter("1m10s")
	NeighboursEvicted  = metric.NewCounter("1m10s")
	CandidatesDropped  = metric.NewCounter("1m10s")
	FramesLost         = metric.NewCounter("1m10s")
	NeighbourTableSize = metric.NewGauge("1m10s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("beacon:Sent", BeaconsSent)
	expvar.Publish("beacon:Received", BeaconsReceived)
	expvar.Publish("beacon:SendErrors", BeaconSendErrors)
	expvar.Publish("beacon:Evicted", NeighboursEvicted)
	expvar.Publish("beacon:Dropped", CandidatesDropped)
	expvar.Publish("beacon:FramesLost", FramesLost)
	expvar.Publish("beacon:TableSize", NeighbourTableSize)
	expvar.Publish("beacon:DispatchLatency (µs)", DispatchLatency)
}
