package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrMetricAbsent  = errors.New("metric not in current snapshot")
)
