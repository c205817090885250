package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("sk_abc")

	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("sk_abc"))
	assert.NotEqual(t, fp, Fingerprint("sk_abd"))
	assert.NotContains(t, fp, "sk_abc")
}

func TestEncodeDecode(t *testing.T) {
	ev := KeyEvent{
		Type:        KeyCreated,
		OwnerName:   "Alice",
		Fingerprint: Fingerprint("sk_abc"),
		Origin:      "console-a",
		At:          time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}

	data, err := Encode(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk_abc")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"rotated","fingerprint":"abc"}`))
	assert.Error(t, err)
}

func TestNewBusRejectsBadURL(t *testing.T) {
	_, err := NewBus("not-a-redis-url", DefaultChannel)
	assert.Error(t, err)
}
