package core

import (
	"encoding/binary"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID identifies a journal entry or conversation turn within a user's scope.
// IDs are random UUID strings so they stay stable across the document store
// and the vector index.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// HashContent returns a 64-bit BLAKE2b digest of text.
// Identical text always produces the same value.
func HashContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// RecordKind selects which family of records an embedding belongs to.
type RecordKind string

const (
	// RecordKindJournal marks journal entry embeddings.
	RecordKindJournal RecordKind = "journal"
	// RecordKindConversation marks conversation turn embeddings.
	RecordKindConversation RecordKind = "conversation"
)

// RecordKinds lists every supported RecordKind.
var RecordKinds = []RecordKind{RecordKindJournal, RecordKindConversation}

// StressLevel is the coarse stress rating attached by analysis.
type StressLevel string

const (
	StressLevelLow    StressLevel = "low"
	StressLevelMedium StressLevel = "medium"
	StressLevelHigh   StressLevel = "high"
)

// DateLayout is the layout of Metadata.Date.
const DateLayout = "2006-01-02"

// Metadata is the structured description produced for a journal entry or a
// conversation turn. Empty strings and nil slices mean "not mentioned".
type Metadata struct {
	Date        string // YYYY-MM-DD, only when the text mentions a date
	Mood        string
	People      []string
	Tags        []string
	Topics      []string
	Emotions    []string
	StressLevel StressLevel
}

// Limit caps every list field at max items, keeping the first ones.
func (m *Metadata) Limit(max int) {
	if max <= 0 {
		return
	}
	m.People = limitList(m.People, max)
	m.Tags = limitList(m.Tags, max)
	m.Topics = limitList(m.Topics, max)
	m.Emotions = limitList(m.Emotions, max)
}

func limitList(values []string, max int) []string {
	if len(values) > max {
		return values[:max]
	}
	return values
}

// JournalEntry is a stored journal entry with its LLM-produced summary.
type JournalEntry struct {
	Id        ID
	UserId    string
	Text      string
	Summary   string
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationTurn is one exchange between the user and the assistant,
// condensed into a summary.
type ConversationTurn struct {
	Id          ID
	UserId      string
	UserMessage string
	AIResponse  string
	Summary     string
	Metadata    Metadata
	CreatedAt   time.Time
}

// AttributeFilter is the predicate set evaluated by the attribute candidate
// source. People, Emotions and Tags match when a record carries any of the
// listed values. Date, Mood and StressLevel match on equality. All non-empty
// clauses must hold.
type AttributeFilter struct {
	People      []string
	Emotions    []string
	Tags        []string
	Date        string
	Mood        string
	StressLevel StressLevel
}

// IsEmpty reports whether the filter has no clauses.
func (f AttributeFilter) IsEmpty() bool {
	return len(f.People) == 0 &&
		len(f.Emotions) == 0 &&
		len(f.Tags) == 0 &&
		f.Date == "" &&
		f.Mood == "" &&
		f.StressLevel == ""
}

// Normalized returns a copy with every value passed through NormalizeAttribute
// and blank or repeated list values removed.
func (f AttributeFilter) Normalized() AttributeFilter {
	return AttributeFilter{
		People:      normalizeList(f.People),
		Emotions:    normalizeList(f.Emotions),
		Tags:        normalizeList(f.Tags),
		Date:        NormalizeAttribute(f.Date),
		Mood:        NormalizeAttribute(f.Mood),
		StressLevel: StressLevel(NormalizeAttribute(string(f.StressLevel))),
	}
}

// NormalizeAttribute folds an attribute value into its indexed form.
func NormalizeAttribute(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = NormalizeAttribute(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SimilarityMatch is a hit from the vector index.
type SimilarityMatch struct {
	Id    ID
	Score float32
}
