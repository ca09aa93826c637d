package telemetry

// Span names, one per pipeline stage. They double as the stage label of
// the pipeline metrics.
const (
	SpanResolveUpload   = "archive.resolve"
	SpanReadDataset     = "dataset.read"
	SpanNormalizeCRS    = "crs.normalize"
	SpanResolveRates    = "rate.resolve"
	SpanSynthesizeBound = "boundary.synthesize"
	SpanAssembleProject = "project.assemble"
)

// Span attribute keys.
const (
	AttrFileName    = "rateplan.file_name"
	AttrUploadCount = "rateplan.upload_count"
	AttrInputCRS    = "rateplan.input_crs"
	AttrOriginalCRS = "rateplan.original_crs"
	AttrFeatures    = "rateplan.features"
	AttrRateKey     = "rateplan.rate_key"
	AttrErrorKind   = "rateplan.error_kind"
)
