package state

import "time"

const (
	// DefaultIdealReach is the target number of distinct nodes a single
	// self-advertisement reaches, "r" in TR2008-918.
	DefaultIdealReach = 100
	// DefaultMaxRouteLength is the longest route a node will choose or
	// tolerate, "w_max" in TR2008-918.
	DefaultMaxRouteLength = 20
	// DefaultMinRouteLength is the shortest route a node will choose,
	// "w_min" in TR2008-918.
	DefaultMinRouteLength = 7
)

var (
	DialTimeout  = time.Second * 5
	WriteTimeout = time.Second * 5
	LinkIdleTTL  = time.Minute * 2

	AdvertiseDelay = time.Minute * 5
	PersistDelay   = time.Second * 30

	// default port for the TCP transport
	DefaultPort = 57411
)
