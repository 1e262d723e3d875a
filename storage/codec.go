package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/journalit/core"
)

// Record layouts are written field by field with mus-go primitives.
// Strings use ord.String, lengths and timestamps use varint, vector
// components use raw.Float32. Timestamps are Unix microseconds; the zero
// time is written as 0.

type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(unixMicro(t), bs)
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if v == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeSer) Size(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

type stringsSer struct{}

func (stringsSer) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func (stringsSer) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]string, length)
	var m int
	for i := range v {
		v[i], m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringsSer) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

type vectorSer struct{}

func (vectorSer) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (vectorSer) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	v = make([]float32, length)
	var m int
	for i := range v {
		v[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorSer) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

type metadataSer struct{}

func (metadataSer) Marshal(m core.Metadata, bs []byte) (n int) {
	n = ord.String.Marshal(m.Date, bs)
	n += ord.String.Marshal(m.Mood, bs[n:])
	n += stringsMUS.Marshal(m.People, bs[n:])
	n += stringsMUS.Marshal(m.Tags, bs[n:])
	n += stringsMUS.Marshal(m.Topics, bs[n:])
	n += stringsMUS.Marshal(m.Emotions, bs[n:])
	n += ord.String.Marshal(string(m.StressLevel), bs[n:])
	return
}

func (metadataSer) Unmarshal(bs []byte) (m core.Metadata, n int, err error) {
	var l int
	m.Date, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	m.Mood, l, err = ord.String.Unmarshal(bs[n:])
	n += l
	if err != nil {
		return
	}
	for _, field := range []*[]string{&m.People, &m.Tags, &m.Topics, &m.Emotions} {
		*field, l, err = stringsMUS.Unmarshal(bs[n:])
		n += l
		if err != nil {
			return
		}
	}
	var level string
	level, l, err = ord.String.Unmarshal(bs[n:])
	n += l
	m.StressLevel = core.StressLevel(level)
	return
}

func (metadataSer) Size(m core.Metadata) (size int) {
	size = ord.String.Size(m.Date)
	size += ord.String.Size(m.Mood)
	size += stringsMUS.Size(m.People)
	size += stringsMUS.Size(m.Tags)
	size += stringsMUS.Size(m.Topics)
	size += stringsMUS.Size(m.Emotions)
	return size + ord.String.Size(string(m.StressLevel))
}

type journalEntrySer struct{}

func (journalEntrySer) Marshal(e core.JournalEntry, bs []byte) (n int) {
	n = ord.String.Marshal(string(e.Id), bs)
	n += ord.String.Marshal(e.UserId, bs[n:])
	n += ord.String.Marshal(e.Text, bs[n:])
	n += ord.String.Marshal(e.Summary, bs[n:])
	n += metadataMUS.Marshal(e.Metadata, bs[n:])
	n += timeMUS.Marshal(e.CreatedAt, bs[n:])
	n += timeMUS.Marshal(e.UpdatedAt, bs[n:])
	return
}

func (journalEntrySer) Unmarshal(bs []byte) (e core.JournalEntry, n int, err error) {
	var (
		l  int
		id string
	)
	id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	e.Id = core.ID(id)
	for _, field := range []*string{&e.UserId, &e.Text, &e.Summary} {
		*field, l, err = ord.String.Unmarshal(bs[n:])
		n += l
		if err != nil {
			return
		}
	}
	e.Metadata, l, err = metadataMUS.Unmarshal(bs[n:])
	n += l
	if err != nil {
		return
	}
	e.CreatedAt, l, err = timeMUS.Unmarshal(bs[n:])
	n += l
	if err != nil {
		return
	}
	e.UpdatedAt, l, err = timeMUS.Unmarshal(bs[n:])
	n += l
	return
}

func (journalEntrySer) Size(e core.JournalEntry) (size int) {
	size = ord.String.Size(string(e.Id))
	size += ord.String.Size(e.UserId)
	size += ord.String.Size(e.Text)
	size += ord.String.Size(e.Summary)
	size += metadataMUS.Size(e.Metadata)
	size += timeMUS.Size(e.CreatedAt)
	return size + timeMUS.Size(e.UpdatedAt)
}

type conversationTurnSer struct{}

func (conversationTurnSer) Marshal(t core.ConversationTurn, bs []byte) (n int) {
	n = ord.String.Marshal(string(t.Id), bs)
	n += ord.String.Marshal(t.UserId, bs[n:])
	n += ord.String.Marshal(t.UserMessage, bs[n:])
	n += ord.String.Marshal(t.AIResponse, bs[n:])
	n += ord.String.Marshal(t.Summary, bs[n:])
	n += metadataMUS.Marshal(t.Metadata, bs[n:])
	n += timeMUS.Marshal(t.CreatedAt, bs[n:])
	return
}

func (conversationTurnSer) Unmarshal(bs []byte) (t core.ConversationTurn, n int, err error) {
	var (
		l  int
		id string
	)
	id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	t.Id = core.ID(id)
	for _, field := range []*string{&t.UserId, &t.UserMessage, &t.AIResponse, &t.Summary} {
		*field, l, err = ord.String.Unmarshal(bs[n:])
		n += l
		if err != nil {
			return
		}
	}
	t.Metadata, l, err = metadataMUS.Unmarshal(bs[n:])
	n += l
	if err != nil {
		return
	}
	t.CreatedAt, l, err = timeMUS.Unmarshal(bs[n:])
	n += l
	return
}

func (conversationTurnSer) Size(t core.ConversationTurn) (size int) {
	size = ord.String.Size(string(t.Id))
	size += ord.String.Size(t.UserId)
	size += ord.String.Size(t.UserMessage)
	size += ord.String.Size(t.AIResponse)
	size += ord.String.Size(t.Summary)
	size += metadataMUS.Size(t.Metadata)
	return size + timeMUS.Size(t.CreatedAt)
}

var (
	timeMUS             = timeSer{}
	stringsMUS          = stringsSer{}
	vectorMUS           = vectorSer{}
	metadataMUS         = metadataSer{}
	journalEntryMUS     = journalEntrySer{}
	conversationTurnMUS = conversationTurnSer{}
)
