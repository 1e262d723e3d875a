package badger

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"

	"github.com/poiesic/journalit/core"
)

// Key prefixes for different data types
const (
	journalPrefix          = "jrnl"
	journalAttributePrefix = "jrnla"
	turnPrefix             = "conv"
	turnDatePrefix         = "convd"
	vectorPrefix           = "vec"
)

// Attribute index field names
const (
	fieldPeople      = "people"
	fieldEmotions    = "emotions"
	fieldTags        = "tags"
	fieldDate        = "date"
	fieldMood        = "mood"
	fieldStressLevel = "stress"
)

// keySep separates key segments. User ids, attribute values and record ids
// are stripped of it so segments never bleed into each other.
const keySep = byte(0)

// makeKey joins prefix and parts with keySep. A trailing separator is
// appended when open is true so the result can be used as a scan prefix.
func makeKey(open bool, prefix string, parts ...string) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p) + 1
	}
	if open {
		size++
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteString(prefix)
	for _, p := range parts {
		buf.WriteByte(keySep)
		buf.WriteString(strings.ReplaceAll(p, string(keySep), ""))
	}
	if open {
		buf.WriteByte(keySep)
	}
	return buf.Bytes()
}

// lastSegment returns the part of key after the final separator.
func lastSegment(key []byte) string {
	i := bytes.LastIndexByte(key, keySep)
	return string(key[i+1:])
}

// makeJournalKey generates a key for a journal entry.
// Format: prefix:user:id
func makeJournalKey(userID string, id core.ID) []byte {
	return makeKey(false, journalPrefix, userID, string(id))
}

// makeJournalAttributeKey generates a composite key for the attribute index.
// Format: prefix:user:field:value:id
func makeJournalAttributeKey(userID, field, value string, id core.ID) []byte {
	return makeKey(false, journalAttributePrefix, userID, field, value, string(id))
}

// makePartialJournalAttributeKey generates the scan prefix for one
// (field, value) pair.
func makePartialJournalAttributeKey(userID, field, value string) []byte {
	return makeKey(true, journalAttributePrefix, userID, field, value)
}

// makeTurnKey generates a key for a conversation turn.
func makeTurnKey(userID string, id core.ID) []byte {
	return makeKey(false, turnPrefix, userID, string(id))
}

// makeTurnDateKey generates a composite key for the recency index.
// Format: prefix:user:timestamp:id
func makeTurnDateKey(userID string, createdAt time.Time, id core.ID) []byte {
	prefix := makePartialTurnDateKey(userID)
	buf := make([]byte, len(prefix)+8, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return append(buf, id...)
}

// makePartialTurnDateKey generates the scan prefix for a user's recency index.
func makePartialTurnDateKey(userID string) []byte {
	return makeKey(true, turnDatePrefix, userID)
}

// makeVectorKey generates a key for an embedding.
// Format: prefix:kind:user:id
func makeVectorKey(kind core.RecordKind, userID string, id core.ID) []byte {
	return makeKey(false, vectorPrefix, string(kind), userID, string(id))
}

// makePartialVectorKey generates the scan prefix for a user's embeddings
// of one kind.
func makePartialVectorKey(kind core.RecordKind, userID string) []byte {
	return makeKey(true, vectorPrefix, string(kind), userID)
}

// attributeEntries lists the (field, value) pairs indexed for metadata.
// Values are normalized and blanks skipped.
func attributeEntries(m core.Metadata) [][2]string {
	var entries [][2]string
	addList := func(field string, values []string) {
		for _, v := range values {
			if v = core.NormalizeAttribute(v); v != "" {
				entries = append(entries, [2]string{field, v})
			}
		}
	}
	addOne := func(field, value string) {
		if value = core.NormalizeAttribute(value); value != "" {
			entries = append(entries, [2]string{field, value})
		}
	}
	addList(fieldPeople, m.People)
	addList(fieldEmotions, m.Emotions)
	addList(fieldTags, m.Tags)
	addOne(fieldDate, m.Date)
	addOne(fieldMood, m.Mood)
	addOne(fieldStressLevel, string(m.StressLevel))
	return entries
}
