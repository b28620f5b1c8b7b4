package telemetry

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeepsLastEntries(t *testing.T) {
	tm := NewTelemetryManager("s1", nil)
	for i := 0; i < DefaultMaxEntries+25; i++ {
		tm.Record("spawn", map[string]interface{}{"i": i})
	}

	entries := tm.Entries()
	require.Len(t, entries, DefaultMaxEntries)
	assert.Equal(t, 25, entries[0].Fields["i"])
	assert.Equal(t, DefaultMaxEntries+24, entries[len(entries)-1].Fields["i"])
	assert.Equal(t, DefaultMaxEntries+25, tm.Totals()["spawn"])
}

func TestDisabledManagerDropsEvents(t *testing.T) {
	tm := NewTelemetryManager("s1", nil)
	tm.SetEnabled(false)
	tm.Record("drop", nil)
	assert.Empty(t, tm.Entries())

	tm.SetEnabled(true)
	tm.Record("drop", nil)
	assert.Len(t, tm.Entries(), 1)

	tm.Clear()
	assert.Empty(t, tm.Entries())
	assert.Empty(t, tm.Totals())
}

func TestTelemetryJSON(t *testing.T) {
	tm := NewTelemetryManager("abc", nil)
	tm.Record("pay", map[string]interface{}{"paid": 650})

	raw, err := tm.GetTelemetryJSON()
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "abc", decoded[0].Session)
	assert.Equal(t, "pay", decoded[0].Kind)
	assert.EqualValues(t, 650, decoded[0].Fields["paid"])
}

func TestPrintSummaryRespectsInterval(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	tm := NewTelemetryManager("s1", logger)

	now := time.Unix(1000, 0)
	tm.now = func() time.Time { return now }
	tm.lastPrint = now

	tm.Record("spawn", nil)
	tm.PrintSummary()
	assert.Empty(t, hook.AllEntries())

	now = now.Add(31 * time.Second)
	tm.PrintSummary()
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, 1, hook.LastEntry().Data["spawn"])

	now = now.Add(31 * time.Second)
	tm.PrintSummary()
	assert.Len(t, hook.AllEntries(), 1, "no new events, no summary")
}

func TestHubEvictsOldest(t *testing.T) {
	h := NewHub(2, nil)
	a := h.Open("a")
	assert.Same(t, a, h.Open("a"))
	h.Open("b")
	h.Open("c")

	_, ok := h.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, h.Sessions())

	for i := 0; i < 3; i++ {
		h.Open(fmt.Sprintf("x%d", i))
	}
	assert.Len(t, h.Sessions(), 2)
}
