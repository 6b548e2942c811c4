package core

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or supplied by callers.
type ID string

// Fingerprint computes the content checksum for raw source bytes using
// BLAKE2b, returned as a lowercase hex string. Identical bytes produce
// identical fingerprints, which is what makes re-ingestion detectable.
func Fingerprint(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// DocumentID derives the default document ID for a source fingerprint.
// Callers may assign their own IDs instead; this is the stable fallback
// that keeps re-ingestion of the same bytes idempotent.
func DocumentID(fingerprint string) ID {
	return IDFromContent("doc:" + fingerprint)
}

// ChunkID derives the deterministic ID for a chunk of a document.
func ChunkID(docId ID, orderIndex int) ID {
	return IDFromContent(fmt.Sprintf("chunk:%s:%d", docId, orderIndex))
}

// EntityID derives the deterministic ID for an entity extracted from a
// document, so repeated analysis replaces rather than duplicates it.
func EntityID(docId ID, entityType, name string) ID {
	return IDFromContent(fmt.Sprintf("entity:%s:(%s,%s)", docId, entityType, name))
}

// RelationshipID derives the deterministic ID for a relationship
// between two entities of a document.
func RelationshipID(docId, fromEntity, toEntity ID) ID {
	return IDFromContent(fmt.Sprintf("rel:%s:%s->%s", docId, fromEntity, toEntity))
}

// DocumentType identifies the source format of an ingested document.
type DocumentType string

const (
	TypePDF      DocumentType = "pdf"
	TypeMarkdown DocumentType = "markdown"
	TypeExcel    DocumentType = "excel"
	TypeWord     DocumentType = "word"
	TypePPT      DocumentType = "ppt"
	TypeHTML     DocumentType = "html"
	TypePicture  DocumentType = "picture"
	TypeText     DocumentType = "text"
	TypeUnknown  DocumentType = "unknown"
)

// TypeFromName infers the document type from a source name's extension.
// Unknown extensions map to TypeUnknown; an absent extension maps to
// TypeText so bare pasted content still parses.
func TypeFromName(name string) DocumentType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return TypePDF
	case ".md", ".markdown":
		return TypeMarkdown
	case ".xls", ".xlsx", ".csv":
		return TypeExcel
	case ".doc", ".docx":
		return TypeWord
	case ".ppt", ".pptx":
		return TypePPT
	case ".htm", ".html":
		return TypeHTML
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff":
		return TypePicture
	case ".txt", ".text", "":
		return TypeText
	default:
		return TypeUnknown
	}
}

// Source is one raw input artifact handed to the pipeline. Pure data:
// callers read files themselves (or use the facade helpers) so the
// model stays free of filesystem concerns.
type Source struct {
	Name string `json:"name"`           // file name or logical name, used for type detection
	Path string `json:"path,omitempty"` // filesystem path the bytes came from, if any
	Data []byte `json:"-"`              // raw bytes
}

// Document is the canonical representation of one ingested source
// artifact and everything derived from it. It is created by a Parser
// and enriched in place by the later pipeline stages.
type Document struct {
	Id          ID           `json:"id"`
	Name        string       `json:"name"`
	Type        DocumentType `json:"type"`
	Fingerprint string       `json:"source_fingerprint"`

	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Elements []Element      `json:"elements,omitempty"` // ordered as extracted

	Chunks        []*Chunk        `json:"chunks,omitempty"`
	Entities      []*Entity       `json:"entities,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty"`

	InsertedAt time.Time `json:"inserted_at,omitzero"` // set by the document store on first save
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// ElementKind discriminates the element variants attached to a document.
type ElementKind string

const (
	ElementPicture   ElementKind = "picture"
	ElementTable     ElementKind = "table"
	ElementFormula   ElementKind = "formula"
	ElementLink      ElementKind = "link"
	ElementReference ElementKind = "reference"
	ElementOutline   ElementKind = "outline"
)

// Element is one typed sub-object extracted from a document. Kind
// selects which variant field is populated; the others stay nil.
type Element struct {
	Id   ID          `json:"id"`
	Kind ElementKind `json:"kind"`
	Page int         `json:"page,omitempty"` // 1-based page reference, 0 when unknown

	Picture   *Picture           `json:"picture,omitempty"`
	Table     *Table             `json:"table,omitempty"`
	Formula   *Formula           `json:"formula,omitempty"`
	Link      *Link              `json:"link,omitempty"`
	Reference *Reference         `json:"reference,omitempty"`
	Outline   *StructuredContent `json:"outline,omitempty"`
}

// Picture is an embedded image with its raw payload.
type Picture struct {
	Content     []byte `json:"content,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size,omitempty"` // payload size in bytes
	Description string `json:"description,omitempty"`
}

// Table is a detected table. Content stays empty until a later
// enrichment stage fills it; only the location is captured at parse
// time.
type Table struct {
	Caption string    `json:"caption,omitempty"`
	Region  []float64 `json:"region,omitempty"` // bounding region on the page
	Content string    `json:"content,omitempty"`
}

// Formula is a formula in its raw source representation (e.g. LaTeX).
type Formula struct {
	Raw string `json:"raw"`
}

// Link is a hyperlink found in the document.
type Link struct {
	Target  string `json:"target"`
	Summary string `json:"summary,omitempty"`
}

// Reference is a bibliographic reference.
type Reference struct {
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	URL       string   `json:"url,omitempty"`
	Date      string   `json:"date,omitempty"`
}

// StructuredContent is a hierarchical outline node.
type StructuredContent struct {
	Level    int                 `json:"level"`
	Text     string              `json:"text"`
	Children []StructuredContent `json:"children,omitempty"`
}

// Chunk is a contiguous content span derived from a document.
// It may be enriched with an embedding and analysis results during
// processing.
type Chunk struct {
	Id         ID        `json:"id"`
	DocId      ID        `json:"doc_id"`
	OrderIndex int       `json:"order_index"`
	Text       string    `json:"text"`
	Tokens     int       `json:"tokens,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"` // nil until the embedding stage ran

	Entities      []*Entity       `json:"entities,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty"`
}

// Entity is an extracted semantic fact.
type Entity struct {
	Id          ID      `json:"id"`
	DocId       ID      `json:"doc_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`          // in [0,1]
	SourceId    ID      `json:"source_id,omitempty"` // chunk the fact derives from, else the document
}

// Tuple returns a string representation of the entity as "(Type,Name)".
// This is used for generating deterministic IDs.
func (e *Entity) Tuple() string {
	return "(" + e.Type + "," + e.Name + ")"
}

// Relationship is an extracted semantic relation between two entities.
type Relationship struct {
	Id           ID       `json:"id"`
	DocId        ID       `json:"doc_id"`
	FromEntityId ID       `json:"from_entity_id"`
	ToEntityId   ID       `json:"to_entity_id"`
	Description  string   `json:"description,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Weight       float64  `json:"weight,omitempty"`
	Confidence   float64  `json:"confidence"` // in [0,1]
	SourceId     ID       `json:"source_id,omitempty"`
}

// AnalysisResult is the output of one analyzer over a document:
// entities, relationships, or scalar metrics depending on the
// analyzer's kind.
type AnalysisResult struct {
	Analyzer      string             `json:"analyzer"`
	Entities      []*Entity          `json:"entities,omitempty"`
	Relationships []*Relationship    `json:"relationships,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// ChunkMatch is a vector similarity hit against an embedded chunk.
type ChunkMatch struct {
	ChunkId ID      `json:"chunk_id"`
	DocId   ID      `json:"doc_id"`
	Text    string  `json:"text,omitempty"`
	Score   float32 `json:"score"`
}

// ReviewResult is a reviewer's quality assessment of a document.
type ReviewResult struct {
	Complete    bool     `json:"complete"`
	Consistent  bool     `json:"consistent"`
	Clear       bool     `json:"clear"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Score       float64  `json:"score,omitempty"`
}

// ChangeProposal is one suggested modification produced by a proposal
// generator.
type ChangeProposal struct {
	Description     string `json:"description"`
	Reason          string `json:"reason"`
	Impact          string `json:"impact,omitempty"`
	SuggestedChange string `json:"suggested_change"`
	Location        string `json:"location,omitempty"` // page or section in the source document
}

// KnowledgeFragment is one piece of domain knowledge returned by a
// knowledge provider lookup.
type KnowledgeFragment struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// ContentPartType discriminates multimodal input parts.
type ContentPartType string

const (
	PartText  ContentPartType = "text"
	PartImage ContentPartType = "image"
)

// ContentPart is one piece of a multimodal input.
type ContentPart struct {
	Type ContentPartType `json:"type"`
	Text string          `json:"text,omitempty"`
	Data []byte          `json:"data,omitempty"` // raw image bytes when Type is PartImage
}
