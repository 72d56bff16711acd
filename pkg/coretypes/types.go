// Package coretypes defines the data model shared across the engine: the
// plain structs and enums for Device, Session, Utterance, Transcript, Claim,
// Document, Chunk, Profile, Fact, Evidence, Validation, Report, and Job. It
// has no dependencies on any other internal package so that every component
// can import it without creating cycles.
package coretypes

import "time"

// ConnectionState is the lifecycle state of a Device.
type ConnectionState string

const (
	StateDiscovered   ConnectionState = "discovered"
	StateConnected    ConnectionState = "connected"
	StateRecording    ConnectionState = "recording"
	StateDisconnected ConnectionState = "disconnected"
)

// TransportKind identifies which wire protocol a Device speaks.
type TransportKind string

const (
	TransportStream  TransportKind = "stream"
	TransportChunked TransportKind = "chunked"
)

// Device is an edge recorder known to the registry.
type Device struct {
	ID         string
	Transport  TransportKind
	Name       string
	Confidence int // 0-100, "looks like a known recorder"
	State      ConnectionState
	LastSeen   time.Time
}

// TerminatingCause explains why a Session ended.
type TerminatingCause string

const (
	CauseExplicitStop    TerminatingCause = "explicit_stop"
	CauseTimeout         TerminatingCause = "timeout"
	CauseDisconnect      TerminatingCause = "disconnect"
	CauseError           TerminatingCause = "error"
	CauseImplicitRestart TerminatingCause = "implicit_restart"
	CauseGapExceeded     TerminatingCause = "gap_exceeded"
)

// SampleFormat identifies the PCM encoding of session audio.
type SampleFormat string

const SampleFormatPCM16LE SampleFormat = "pcm16le"

// Session is a per-device recording envelope bounded by explicit markers or a
// maximum duration.
type Session struct {
	ID              string
	DeviceID        string
	Start           time.Time
	End             time.Time
	SampleRate      int
	Channels        int
	Format          SampleFormat
	Transport       TransportKind
	BytesRecorded   int64
	TerminatingCause TerminatingCause
	Warnings        []string
}

// Open reports whether the Session has not yet been finalized.
func (s *Session) Open() bool {
	return s.End.IsZero()
}

// Utterance is one transcribable audio unit belonging to a Session.
type Utterance struct {
	ID            string
	SessionID     string
	PayloadRef    string // opaque reference to the immutable PCM blob
	SampleRate    int
	Start         time.Time
	Duration      time.Duration
	VoiceActivity *bool
	Ordinal       int
}

// Transcript is the result of transcribing an Utterance.
type Transcript struct {
	ID           string
	UtteranceID  string
	Text         string
	Language     string
	Confidence   *float64 // nil when the model has no native confidence
	ModelID      string
	InferenceDur time.Duration
	CreatedAt    time.Time
}

// ClaimKind classifies an extracted Claim.
type ClaimKind string

const (
	ClaimFact       ClaimKind = "fact"
	ClaimOpinion    ClaimKind = "opinion"
	ClaimPrediction ClaimKind = "prediction"
)

// EntityMentionType classifies an entity span inside a Claim.
type EntityMentionType string

const (
	EntityPerson       EntityMentionType = "person"
	EntityOrganization EntityMentionType = "organization"
	EntityBrand        EntityMentionType = "brand"
	EntityProduct      EntityMentionType = "product"
	EntityPlace        EntityMentionType = "place"
	EntityNumber       EntityMentionType = "number"
	EntityDate         EntityMentionType = "date"
)

// EntityMention is a typed span of text referring to an entity.
type EntityMention struct {
	Surface string
	Type    EntityMentionType
	Start   int
	End     int
}

// Claim is an atomic factual statement extracted from a Transcript.
type Claim struct {
	ID           string
	TranscriptID string
	Ordinal      int
	SpanStart    int
	SpanEnd      int
	Text         string
	Kind         ClaimKind
	Entities     []EntityMention
	Confidence   float64
	ExtractorModel string
}

// Document is an ingested source file, chunked for retrieval.
type Document struct {
	ID             string
	Filename       string
	MIMEKind       string
	SizeBytes      int64
	IngestedAt     time.Time
	Tags           []string
	Category       string
	Context        string
	LinkedProfiles []string
	// ChunkCount is the number of chunks currently indexed for this
	// document. It lets a reingest locate and prune stale chunk ids
	// without the vector index needing a document-scoped listing query.
	ChunkCount int
}

// Chunk is a text window produced by splitting a Document for embedding.
type Chunk struct {
	ID             string
	DocumentID     string
	Ordinal        int
	Text           string
	StartOffset    int
	EndOffset      int
	Embedding      []float32
	Tags           []string
	Category       string
	LinkedProfiles []string
}

// ProfileKind is the tagged-union discriminant for a Profile.
type ProfileKind string

const (
	ProfileClient ProfileKind = "client"
	ProfileBrand  ProfileKind = "brand"
	ProfilePerson ProfileKind = "person"
)

// Profile is a durable structured entity: client, brand, or person.
type Profile struct {
	ID          string
	Kind        ProfileKind
	DisplayName string
	Description string
	Tags        []string
	Documents   []string
	Facts       []Fact

	// Kind-specific fields.
	ClientType       string   // kind == client
	BrandValues      []string // kind == brand
	PersonRole       string   // kind == person
	PersonOrg        string   // kind == person
}

// Fact is a statement attached to a Profile.
type Fact struct {
	ID         string
	ProfileID  string
	Statement  string
	SourceRef  string // document id or transcript id
	Confidence float64
	Verified   bool
	CreatedAt  time.Time
}

// EvidenceSourceKind identifies what kind of record an Evidence cites.
type EvidenceSourceKind string

const (
	EvidenceDocumentChunk EvidenceSourceKind = "document_chunk"
	EvidenceProfileFact   EvidenceSourceKind = "profile_fact"
)

// Evidence is a retrieved chunk or profile fact cited by a Validation.
type Evidence struct {
	SourceKind    EvidenceSourceKind
	SourceID      string
	Quote         string
	Score         float64
	SupportsClaim bool
	Rationale     string
}

// ValidationStatus is the verdict assigned to a Claim.
type ValidationStatus string

const (
	StatusConfirmed    ValidationStatus = "confirmed"
	StatusContradicted ValidationStatus = "contradicted"
	StatusUncertain    ValidationStatus = "uncertain"
	StatusNoData       ValidationStatus = "no_data"
)

// Validation is the outcome of adjudicating a Claim against Evidence.
type Validation struct {
	ID             string
	ClaimID        string
	Status         ValidationStatus
	Confidence     float64
	Evidence       []Evidence
	Recommendation string

	// Replay metadata.
	RetrievedChunkIDs []string
	LLMFingerprint    string
}

// Report assembles a Transcript's Claims and Validations.
type Report struct {
	ID                string
	TranscriptID      string
	Claims            []Claim
	Validations       []*Validation // nil entry when the paired claim is not kind=fact
	OverallCredibility *float64      // nil when annotated no_claims
	NoClaims          bool
	Warnings          []string
	Summary           string
	CreatedAt         time.Time
}

// ResourceClass labels which scarce resource a Job contends for.
type ResourceClass string

const (
	ResourceGPU ResourceClass = "gpu"
	ResourceLLM ResourceClass = "llm"
	ResourceCPU ResourceClass = "cpu"
)

// Priority is a Job Queue scheduling tier.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// JobPhase is the lifecycle state of a queued job.
type JobPhase string

const (
	JobQueued    JobPhase = "queued"
	JobRunning   JobPhase = "running"
	JobCompleted JobPhase = "completed"
	JobFailed    JobPhase = "failed"
	JobCanceled  JobPhase = "canceled"
)
