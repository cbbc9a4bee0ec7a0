package app

import (
	"context"

	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/pkg/errors"
)

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

func (h healthCheck) Name() string                    { return h.name }
func (h healthCheck) Check(ctx context.Context) error { return h.check(ctx) }

// HealthCheckers returns a readiness probe for every enabled backend.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	var checks []handlers.HealthChecker
	if i.Redis != nil {
		checks = append(checks, healthCheck{name: "redis", check: i.Redis.Ping})
	}
	if i.MinIO != nil {
		checks = append(checks, healthCheck{name: "minio", check: func(ctx context.Context) error {
			status, err := i.MinIO.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return errors.New(errors.ErrCodeStorageError, status.Error)
			}
			return nil
		}})
	}
	return checks
}

//Personal.AI order the ending
