package ports

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

// Projector builds coordinate transformations between two CRS given as
// authority codes ("EPSG:25832").
type Projector interface {
	Projection(from, to string) (orb.Projection, error)
}

// EventPublisher publishes pipeline events to a message broker.
type EventPublisher interface {
	PublishPlanConverted(ctx context.Context, event *domain.PlanConvertedEvent) error
	PublishProjectAssembled(ctx context.Context, event *domain.ProjectAssembledEvent) error
}
