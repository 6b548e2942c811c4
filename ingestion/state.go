package ingestion

import (
	"time"

	"github.com/poiesic/docit/core"
)

// State identifies how far an ingestion run has progressed.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateParsed    State = "PARSED"
	StateChunked   State = "CHUNKED"
	StateEmbedded  State = "EMBEDDED"
	StateAnalyzed  State = "ANALYZED"
	StatePersisted State = "PERSISTED"
	StateFailed    State = "FAILED"
)

// Store keys used in Result.StoreErrors for the three-way write.
const (
	StoreDocuments  = "documents"
	StoreVectors    = "vectors"
	StoreStructured = "structured"
)

// Result reports the outcome of one ingestion run. It is returned for
// failed runs too, so callers can inspect the state reached and the
// per-store outcome before deciding whether to retry (safe: ingestion
// is idempotent per document id).
type Result struct {
	// RunId uniquely identifies this run in logs and reports.
	RunId string

	// DocId is the stable document id the run operated on.
	DocId core.ID

	// State is the final state: PERSISTED on success, FAILED otherwise.
	State State

	// Doc is the document as far as the run populated it. Nil if
	// parsing never succeeded.
	Doc *core.Document

	// Degraded is true when the run reached PERSISTED but one or more
	// analyzers failed.
	Degraded bool

	// AnalyzerFailures records each failed analyzer by name.
	AnalyzerFailures map[string]error

	// StoreErrors records each failed store of the three-way write,
	// keyed by StoreDocuments, StoreVectors or StoreStructured. A store
	// absent from the map succeeded.
	StoreErrors map[string]error

	// ResumedChunks counts chunks that inherited their embedding from
	// a previously persisted revision instead of being re-embedded.
	ResumedChunks int

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}
