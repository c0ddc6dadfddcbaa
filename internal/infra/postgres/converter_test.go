package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, PgtypeToUUID(UUIDToPgtype(id)))
}

func TestUUIDPtrConversion(t *testing.T) {
	assert.False(t, UUIDPtrToPgtype(nil).Valid)
	assert.Nil(t, PgtypeToUUIDPtr(pgtype.UUID{}))

	id := uuid.New()
	converted := UUIDPtrToPgtype(&id)
	require.True(t, converted.Valid)
	require.NotNil(t, PgtypeToUUIDPtr(converted))
	assert.Equal(t, id, *PgtypeToUUIDPtr(converted))
}

func TestStringPtrConversion(t *testing.T) {
	assert.False(t, StringPtrToPgtext(nil).Valid)
	assert.Nil(t, PgtextToStringPtr(pgtype.Text{}))

	s := "hello"
	converted := StringPtrToPgtext(&s)
	require.True(t, converted.Valid)
	assert.Equal(t, "hello", *PgtextToStringPtr(converted))
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	assert.Equal(t, now, PgtypeToTime(TimeToPgtype(now)))
}

func TestJSONBRoundTrip(t *testing.T) {
	original := map[string]any{"status": "ok", "count": float64(3)}

	b, err := JSONBFromValue(original)
	require.NoError(t, err)

	decoded, err := JSONBToMap(b)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestJSONBToMapEmpty(t *testing.T) {
	decoded, err := JSONBToMap(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
