package rowstore

import "errors"

// Sentinel kinds for row store errors.
var (
	ErrUnknownColumn = errors.New("column not in the deliveries schema")
	ErrUnknownMetric = errors.New("metric has no aggregate expression")
	ErrBadOperator   = errors.New("operator not renderable")
)
