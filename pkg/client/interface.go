package client

import (
	"context"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// VisionClient is a vision-language model backend that can locate objects in an image
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	LocateObjects(ctx context.Context, model, prompt, imgB64 string) (*types.ObjectList, error)
}

// HealthChecker is implemented by backends that can report readiness
type HealthChecker interface {
	Health(ctx context.Context) error
}
