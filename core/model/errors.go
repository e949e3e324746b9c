package model

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid cell or calendar setting.
type ConfigurationError struct {
	CellID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.CellID == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error for cell %s: %s", e.CellID, e.Reason)
}

// DataError reports an operation that cannot be planned from its own data.
type DataError struct {
	OperationID string
	Reason      string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error for operation %s: %s", e.OperationID, e.Reason)
}

// NoCapacityError reports that the horizon was exhausted before the operation
// could be fully placed.
type NoCapacityError struct {
	OperationID    string
	CellID         string
	From           Date
	HorizonDays    int
	RemainingHours float64
}

func (e *NoCapacityError) Error() string {
	return fmt.Sprintf("no capacity for operation %s on cell %s within %d days from %s (%.2fh unplaced)",
		e.OperationID, e.CellID, e.HorizonDays, e.From, e.RemainingHours)
}

// ErrorKind returns a short label for metrics and logs.
func ErrorKind(err error) string {
	var cfg *ConfigurationError
	var data *DataError
	var noCap *NoCapacityError
	switch {
	case errors.As(err, &cfg):
		return "configuration"
	case errors.As(err, &data):
		return "data"
	case errors.As(err, &noCap):
		return "no_capacity"
	case err == nil:
		return ""
	default:
		return "unknown"
	}
}
