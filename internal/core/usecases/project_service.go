package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/ports"
	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
	"github.com/samirrijal/rateplan/internal/pkg/logging"
	"github.com/samirrijal/rateplan/internal/pkg/metrics"
	"github.com/samirrijal/rateplan/internal/pkg/telemetry"
)

// AssembleProject completes a project file. A missing boundary is
// synthesized from the plan; a supplied one is kept unchanged.
func AssembleProject(p *domain.ProjectFile) (*domain.ProjectFile, error) {
	return assembleProject(p, SynthesizeBoundary)
}

func assembleProject(p *domain.ProjectFile, synthesize func(*domain.FeatureCollection) (*domain.FeatureCollection, error)) (*domain.ProjectFile, error) {
	if p == nil {
		return nil, domain.ErrMissingBoundaryAndPlan
	}
	if err := p.Settings.Validate(); err != nil {
		return nil, err
	}
	out := *p
	if out.Boundaries != nil {
		return &out, nil
	}
	if out.Plan == nil {
		return nil, domain.ErrMissingBoundaryAndPlan
	}
	boundary, err := synthesize(out.Plan)
	if err != nil {
		return nil, err
	}
	out.Boundaries = boundary
	return &out, nil
}

// ProjectService runs uploads through the ingestion pipeline.
type ProjectService struct {
	reader     *SpatialReader
	normalizer *CRSNormalizer
	events     ports.EventPublisher
	defaultCRS string
}

// NewProjectService creates a new ProjectService. events may be nil.
// defaultCRS is used when a request names no input CRS.
func NewProjectService(reader *SpatialReader, normalizer *CRSNormalizer, events ports.EventPublisher, defaultCRS string) *ProjectService {
	if defaultCRS == "" {
		defaultCRS = geospatial.WGS84
	}
	return &ProjectService{reader: reader, normalizer: normalizer, events: events, defaultCRS: defaultCRS}
}

// ingested is a normalized dataset ready for the plan or boundary path.
type ingested struct {
	name     string
	features *domain.FeatureCollection
	crs      domain.CRSRecord
}

func (s *ProjectService) ingest(ctx context.Context, operation string, uploads []domain.Upload, inputCRS string) (*ingested, error) {
	if inputCRS == "" {
		inputCRS = s.defaultCRS
	}
	inputCRS = geospatial.CanonicalName(inputCRS)
	if !geospatial.IsAuthorityCode(inputCRS) {
		return nil, domain.Errorf(domain.KindInvalidCRS, "input crs %q is not an EPSG code", inputCRS)
	}

	var size int
	for _, u := range uploads {
		size += len(u.Data)
	}
	metrics.UploadSize.Observe(float64(size))

	var src domain.Source
	err := stage(ctx, telemetry.SpanResolveUpload, func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.Int(telemetry.AttrUploadCount, len(uploads)))
		var err error
		src, err = ResolveUpload(uploads)
		return err
	})
	if err != nil {
		return nil, err
	}

	var ds *domain.Dataset
	err = stage(ctx, telemetry.SpanReadDataset, func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.String(telemetry.AttrFileName, src.File))
		var err error
		ds, err = s.reader.Read(ctx, uploads, src)
		if err == nil {
			span.SetAttributes(attribute.Int(telemetry.AttrFeatures, ds.Features.Len()))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.FeaturesIngested.WithLabelValues(operation).Add(float64(ds.Features.Len()))

	out := &ingested{name: ds.Name}
	err = stage(ctx, telemetry.SpanNormalizeCRS, func(ctx context.Context, span trace.Span) error {
		var err error
		out.features, out.crs, err = s.normalizer.Normalize(ctx, ds, inputCRS)
		span.SetAttributes(
			attribute.String(telemetry.AttrInputCRS, out.crs.Input),
			attribute.String(telemetry.AttrOriginalCRS, out.crs.Original),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("dataset ingested",
		"operation", operation,
		"file", src.File,
		"entry", src.Entry,
		"features", out.features.Len(),
		"input_crs", out.crs.Input,
		"original_crs", out.crs.Original,
	)
	return out, nil
}

// ConvertPlan reads an uploaded rate plan, moves it to WGS84 and scales its
// rates to the plan maximum.
func (s *ProjectService) ConvertPlan(ctx context.Context, uploads []domain.Upload, inputCRS string) (conv *domain.PlanConversion, err error) {
	defer func() { countRun("convert_plan", err) }()

	in, err := s.ingest(ctx, "convert_plan", uploads, inputCRS)
	if err != nil {
		return nil, err
	}

	var rates domain.RateSummary
	err = stage(ctx, telemetry.SpanResolveRates, func(ctx context.Context, span trace.Span) error {
		var err error
		rates, err = ResolveRates(in.features)
		span.SetAttributes(attribute.String(telemetry.AttrRateKey, rates.Key))
		return err
	})
	if err != nil {
		return nil, err
	}

	conv = &domain.PlanConversion{
		FileName:    in.name,
		GeoJSON:     *in.features,
		InputCRS:    in.crs.Input,
		OriginalCRS: in.crs.OriginalOrNil(),
		MinRate:     rates.Min,
		MaxRate:     rates.Max,
		RateKey:     rates.Key,
	}

	if s.events != nil {
		ev := &domain.PlanConvertedEvent{
			ID:          uuid.NewString(),
			Time:        time.Now().UTC(),
			FileName:    conv.FileName,
			Features:    in.features.Len(),
			RateKey:     rates.Key,
			MinRate:     rates.Min,
			MaxRate:     rates.Max,
			InputCRS:    in.crs.Input,
			OriginalCRS: in.crs.Original,
		}
		if err := s.events.PublishPlanConverted(ctx, ev); err != nil {
			logging.FromContext(ctx).Warn("publish plan converted failed", "error", err)
		}
	}
	return conv, nil
}

// ConvertBoundary reads an uploaded field boundary and moves it to WGS84.
func (s *ProjectService) ConvertBoundary(ctx context.Context, uploads []domain.Upload, inputCRS string) (conv *domain.BoundaryConversion, err error) {
	defer func() { countRun("convert_boundary", err) }()

	in, err := s.ingest(ctx, "convert_boundary", uploads, inputCRS)
	if err != nil {
		return nil, err
	}
	return &domain.BoundaryConversion{
		FileName:    in.name,
		GeoJSON:     *in.features,
		InputCRS:    in.crs.Input,
		OriginalCRS: in.crs.OriginalOrNil(),
	}, nil
}

// ConvertPlanToProject converts an uploaded plan and wraps it in a project
// file with a synthesized boundary and default settings.
func (s *ProjectService) ConvertPlanToProject(ctx context.Context, uploads []domain.Upload, inputCRS string) (*domain.ProjectFile, error) {
	conv, err := s.ConvertPlan(ctx, uploads, inputCRS)
	if err != nil {
		return nil, err
	}
	plan := conv.GeoJSON
	return s.CreateProject(ctx, &domain.ProjectFile{
		Plan:     &plan,
		Settings: domain.DefaultSettings(),
	})
}

// CreateProject completes a client-supplied project file.
func (s *ProjectService) CreateProject(ctx context.Context, p *domain.ProjectFile) (out *domain.ProjectFile, err error) {
	defer func() { countRun("create_project", err) }()

	synthesize := p != nil && p.Boundaries == nil
	err = stage(ctx, telemetry.SpanAssembleProject, func(ctx context.Context, span trace.Span) error {
		var err error
		out, err = assembleProject(p, func(plan *domain.FeatureCollection) (boundary *domain.FeatureCollection, err error) {
			err = stage(ctx, telemetry.SpanSynthesizeBound, func(ctx context.Context, span trace.Span) error {
				span.SetAttributes(attribute.Int(telemetry.AttrFeatures, plan.Len()))
				boundary, err = SynthesizeBoundary(plan)
				return err
			})
			return boundary, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if synthesize {
		metrics.BoundariesSynthesized.Inc()
	}

	logging.FromContext(ctx).Debug("project assembled",
		"boundary_features", out.Boundaries.Len(),
		"plan_features", out.Plan.Len(),
		"boundary_synthesized", synthesize,
	)

	if s.events != nil {
		ev := &domain.ProjectAssembledEvent{
			ID:                  uuid.NewString(),
			Time:                time.Now().UTC(),
			BoundaryFeatures:    out.Boundaries.Len(),
			PlanFeatures:        out.Plan.Len(),
			BoundarySynthesized: synthesize,
		}
		if err := s.events.PublishProjectAssembled(ctx, ev); err != nil {
			logging.FromContext(ctx).Warn("publish project assembled failed", "error", err)
		}
	}
	return out, nil
}

// stage runs fn inside a span named after the stage and records its metrics.
func stage(ctx context.Context, name string, fn func(ctx context.Context, span trace.Span) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	defer span.End()

	done := metrics.ObserveStage(name)
	err := fn(ctx, span)
	done(outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(telemetry.AttrErrorKind, outcome(err)))
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func countRun(operation string, err error) {
	metrics.PipelineRuns.WithLabelValues(operation, outcome(err)).Inc()
}

// outcome labels err for metrics: "ok", its kind, or "internal".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := domain.KindOf(err); ok {
		return string(kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "internal"
}
