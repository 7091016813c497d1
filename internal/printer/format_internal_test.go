package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		at  time.Time
		exp string
	}{
		"Right now should be zero seconds.": {
			at:  now,
			exp: "0 seconds ago (UTC)",
		},
		"A single unit should be singular.": {
			at:  now.Add(-time.Minute),
			exp: "1 minute ago (UTC)",
		},
		"Seconds should be used under a minute.": {
			at:  now.Add(-59 * time.Second),
			exp: "59 seconds ago (UTC)",
		},
		"The largest whole unit should be used.": {
			at:  now.Add(-5*time.Hour - 30*time.Minute),
			exp: "5 hours ago (UTC)",
		},
		"Days should be the largest unit.": {
			at:  now.Add(-40 * 24 * time.Hour),
			exp: "40 days ago (UTC)",
		},
		"Other time zones should be normalized.": {
			at:  now.Add(-2 * time.Hour).In(time.FixedZone("CEST", 2*3600)),
			exp: "2 hours ago (UTC)",
		},
		"Future times should be reported.": {
			at:  now.Add(time.Hour),
			exp: "in the future (UTC)",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, timeAgoFrom(now, test.at))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[string]struct {
		n   int64
		exp string
	}{
		"Negative sizes should be zero.": {n: -5, exp: "0 B"},
		"Small sizes should be bytes.":   {n: 512, exp: "512 B"},
		"Kilobytes.":                     {n: 1536, exp: "1.5 KB"},
		"Megabytes.":                     {n: 700 * 1024 * 1024, exp: "700.0 MB"},
		"Gigabytes.":                     {n: 10 * 1024 * 1024 * 1024, exp: "10.0 GB"},
		"Terabytes.":                     {n: 3 * 1024 * 1024 * 1024 * 1024, exp: "3.0 TB"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, FormatBytes(test.n))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 10, 14, 3, 4, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2024-05-10 12:03:04 UTC", FormatTimestamp(at))
}
