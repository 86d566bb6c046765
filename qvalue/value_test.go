package qvalue_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/quickdb/qvalue"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []qvalue.Value{
		qvalue.Null(),
		qvalue.Bool(true),
		qvalue.I64(-42),
		qvalue.F64(3.5),
		qvalue.String("hello"),
		qvalue.Bytes([]byte{0x01, 0x02, 0xff}),
		qvalue.UUID(uuid.New()),
	}
	for _, v := range cases {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		var raw any
		require.NoError(t, json.Unmarshal(b, &raw))
		got := qvalue.FromJSONValue(raw)
		assert.True(t, v.Equal(got), "kind=%s roundtrip mismatch: %#v vs %#v", v.Kind(), v, got)
	}
}

func TestDateTimeRoundTripsOnInstant(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	original := time.Date(2026, 3, 5, 10, 30, 0, 0, loc)
	v := qvalue.DateTimeOffset(original)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	var raw any
	require.NoError(t, json.Unmarshal(b, &raw))
	got := qvalue.FromJSONValue(raw)

	gt, ok := got.AsTime()
	require.True(t, ok)
	assert.True(t, original.Equal(gt))
}

func TestContainersDoNotEmbedTags(t *testing.T) {
	v := qvalue.Map(
		qvalue.MapEntry{Key: "id", Value: qvalue.I64(1)},
		qvalue.MapEntry{Key: "tags", Value: qvalue.Seq(qvalue.String("a"), qvalue.String("b"))},
	)
	b, err := json.Marshal(v)
	require.NoError(t, err)

	var plain map[string]any
	require.NoError(t, json.Unmarshal(b, &plain))
	assert.Equal(t, float64(1), plain["id"])
	assert.Equal(t, []any{"a", "b"}, plain["tags"])
}

func TestBytesRoundTripByteForByte(t *testing.T) {
	data := []byte{0, 1, 2, 255, 254, 10}
	v := qvalue.Bytes(data)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var raw any
	require.NoError(t, json.Unmarshal(b, &raw))
	got := qvalue.FromJSONValue(raw)
	// bytes re-decode as a base64 string unless the caller re-applies
	// schema knowledge; assert that string decodes to the original bytes.
	s, ok := got.AsString()
	require.True(t, ok)
	decoded, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEqualStructural(t *testing.T) {
	assert.True(t, qvalue.I64(1).Equal(qvalue.I64(1)))
	assert.False(t, qvalue.I64(1).Equal(qvalue.I64(2)))
	assert.False(t, qvalue.I64(1).Equal(qvalue.F64(1)))
}
