package logger

import (
	"bytes"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	fn()
	return buf.String()
}

func TestFormatFields_SortedKeys(t *testing.T) {
	got := formatFields(Fields{"index": 3, "category": "jazz_bebop", "temperature": 0.72})
	assert.Equal(t, "{category=jazz_bebop, index=3, temperature=0.72}", got)
	assert.Equal(t, "", formatFields(nil))
}

func TestItemFields(t *testing.T) {
	fields := ItemFields("rock_ballad", 7)
	assert.Equal(t, Fields{"category": "rock_ballad", "index": 7}, fields)

	extended := fields.With("attempt", 2)
	assert.Equal(t, 2, extended["attempt"])
	assert.NotContains(t, fields, "attempt", "With does not modify the receiver")
}

func TestLevels(t *testing.T) {
	out := captureLog(t, func() {
		Info("item produced", ItemFields("pop_funk", 0))
		Warn("attempt failed", Fields{"attempt": 1})
		Error("encode failed", errors.New("disk full"), Fields{"path": "/tmp/x.mid"})
		Debug("sleeping", nil)
	})

	assert.Contains(t, out, "[INFO] item produced {category=pop_funk, index=0}")
	assert.Contains(t, out, "[WARN] attempt failed {attempt=1}")
	assert.Contains(t, out, "[ERROR] encode failed: disk full {path=/tmp/x.mid}")
	assert.Contains(t, out, "[DEBUG] sleeping")
}
