package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/qvalue"
)

func TestEncodeDecodeRecordPreservesFieldKinds(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	row := qvalue.Map(
		qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)},
		qvalue.MapEntry{Key: "name", Value: qvalue.String("not-a-uuid-but-looks-like-2024")},
		qvalue.MapEntry{Key: "active", Value: qvalue.Bool(true)},
		qvalue.MapEntry{Key: "created_at", Value: qvalue.DateTimeUTC(now)},
		qvalue.MapEntry{Key: "blob", Value: qvalue.Bytes([]byte{1, 2, 3})},
	)

	data, err := EncodeRecord(row)
	require.NoError(t, err)

	decoded, err := DecodeRecord(data)
	require.NoError(t, err)

	id, ok := decoded.MapGet("id")
	require.True(t, ok)
	iv, _ := id.AsI64()
	assert.Equal(t, int64(1), iv)

	name, ok := decoded.MapGet("name")
	require.True(t, ok)
	assert.Equal(t, qvalue.KindString, name.Kind(), "a string field must decode back as a string, not be re-inferred")

	blob, ok := decoded.MapGet("blob")
	require.True(t, ok)
	b, ok := blob.AsBytes()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b)

	ts, ok := decoded.MapGet("created_at")
	require.True(t, ok)
	tv, ok := ts.AsTime()
	require.True(t, ok)
	assert.True(t, tv.Equal(now))
}

func TestEncodeDecodeRowsRoundTrip(t *testing.T) {
	rows := []qvalue.Value{
		qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)}),
		qvalue.Map(qvalue.MapEntry{Key: "id", Value: qvalue.I64(2)}),
	}
	data, err := EncodeRows(rows)
	require.NoError(t, err)

	decoded, err := DecodeRows(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}
