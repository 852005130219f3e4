package health

import "context"

// StorePinger checks state storage availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// TransferChecker checks that the transfer tool can be run.
type TransferChecker interface {
	HealthCheck(ctx context.Context) error
}
