package metrics

// Operation names shared between components and their metrics.
const (
	OpTrackInsert      = "track_insert"
	OpTrackList        = "track_list"
	OpTrackFindByKey   = "track_find_by_key"
	OpTrackFindByID    = "track_find_by_id"
	OpTrackDeleteByID  = "track_delete_by_id"
	OpTrackDeleteByKey = "track_delete_by_key"
	OpTrackCount       = "track_count"
	OpCatalogReset     = "catalog_reset"

	OpProviderRecognize = "provider_recognize"
	OpOutcomePublish    = "outcome_publish"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket parameters, 1ms to ~32s.
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount15  = 15
)
