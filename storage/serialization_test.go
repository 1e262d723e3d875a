package storage

import (
	"testing"
	"time"

	"github.com/poiesic/journalit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"empty ID", core.ID("")},
		{"uuid ID", core.NewID()},
		{"legacy ID", core.ID("jid123")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalJournalEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		entry *core.JournalEntry
	}{
		{
			name: "minimal entry",
			entry: &core.JournalEntry{
				Id:        core.NewID(),
				UserId:    "u1",
				Text:      "Hello",
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		{
			name: "entry with metadata",
			entry: &core.JournalEntry{
				Id:      core.NewID(),
				UserId:  "u1",
				Text:    "Had a stressful meeting with my manager about deadlines.",
				Summary: "Stressful meeting about deadlines.",
				Metadata: core.Metadata{
					Date:        "2025-09-10",
					Mood:        "anxious",
					People:      []string{"manager"},
					Tags:        []string{"work", "deadlines"},
					Emotions:    []string{"anxiety", "stress"},
					StressLevel: core.StressLevelHigh,
				},
				CreatedAt: now,
				UpdatedAt: now.Add(time.Minute),
			},
		},
		{
			name: "zero timestamps",
			entry: &core.JournalEntry{
				Id:     core.NewID(),
				UserId: "u2",
				Text:   "No timestamps yet",
			},
		},
		{
			name: "unicode contents",
			entry: &core.JournalEntry{
				Id:        core.NewID(),
				UserId:    "u3",
				Text:      "Hello 世界 🌍 émojis",
				Metadata:  core.Metadata{People: []string{"Zoë"}},
				CreatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalJournalEntry(tt.entry)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalJournalEntry(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.entry.Id, decoded.Id)
			assert.Equal(t, tt.entry.UserId, decoded.UserId)
			assert.Equal(t, tt.entry.Text, decoded.Text)
			assert.Equal(t, tt.entry.Summary, decoded.Summary)
			assert.Equal(t, tt.entry.Metadata, decoded.Metadata)
			assert.True(t, tt.entry.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.entry.UpdatedAt.Equal(decoded.UpdatedAt))
			assert.Equal(t, tt.entry.CreatedAt.IsZero(), decoded.CreatedAt.IsZero())
		})
	}
}

func TestUnmarshalJournalEntry_Truncated(t *testing.T) {
	entry := &core.JournalEntry{
		Id:       core.NewID(),
		UserId:   "u1",
		Text:     "some text that will be cut short",
		Metadata: core.Metadata{Tags: []string{"a", "b"}},
	}
	data := MarshalJournalEntry(entry)

	_, err := UnmarshalJournalEntry(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalConversationTurn(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	turn := &core.ConversationTurn{
		Id:          core.NewID(),
		UserId:      "u1",
		UserMessage: "I can't sleep before presentations.",
		AIResponse:  "That sounds exhausting. What usually runs through your mind?",
		Summary:     "User reports insomnia before presentations.",
		Metadata: core.Metadata{
			Mood:        "anxious",
			Topics:      []string{"sleep", "work"},
			Emotions:    []string{"worry"},
			StressLevel: core.StressLevelMedium,
		},
		CreatedAt: now,
	}

	data := MarshalConversationTurn(turn)
	decoded, err := UnmarshalConversationTurn(data)
	require.NoError(t, err)

	assert.Equal(t, turn.Id, decoded.Id)
	assert.Equal(t, turn.UserMessage, decoded.UserMessage)
	assert.Equal(t, turn.AIResponse, decoded.AIResponse)
	assert.Equal(t, turn.Summary, decoded.Summary)
	assert.Equal(t, turn.Metadata, decoded.Metadata)
	assert.True(t, turn.CreatedAt.Equal(decoded.CreatedAt))
}

func TestMarshalUnmarshalVector(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"empty", []float32{}},
		{"small", []float32{0.1, -0.2, 0.3}},
		{"large", make([]float32, 768)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalVector(MarshalVector(tt.vector))
			require.NoError(t, err)
			assert.Equal(t, tt.vector, decoded)
		})
	}
}
