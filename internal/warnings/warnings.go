// Package warnings collects non-fatal trouble reports from around the
// process: it keeps a bounded in-memory history of recent warnings,
// forwards each one to the influx writer as a measurement, and mirrors
// rendered lines to an optional broadcast publisher.
package warnings

import (
	"fmt"
	"time"

	"github.com/tsforge/relay/internal/logadapter"
	"github.com/tsforge/relay/pkg/models"
)

// Category classifies a warning.
type Category int

const (
	Notice Category = iota
	Error
	DegradedService
	Critical
	Confirmed
	Awesome
	// Log marks structured log records forwarded to the database. Log
	// records are not retained in the history.
	Log
)

// Short returns the four-letter category code used as the `category` tag.
func (c Category) Short() string {
	switch c {
	case Notice:
		return "NOTC"
	case Error:
		return "ERRO"
	case DegradedService:
		return "DGRD"
	case Critical:
		return "CRIT"
	case Confirmed:
		return "CNFD"
	case Awesome:
		return "AWSM"
	case Log:
		return "LOG"
	default:
		return "UNKN"
	}
}

func (c Category) String() string { return c.Short() }

// Record is one timestamped warning.
type Record struct {
	Time     time.Time
	Category Category
	Message  string

	// Level carries the originating log level short code for Log
	// records; it overrides Category.Short as the category tag.
	Level string

	// KV holds the structured payload of a Log record, nil otherwise.
	KV *logadapter.Record
}

// Measurement converts the record to its wire form: a `category` tag,
// the message as the `msg` string field, and the record's timestamp.
// Structured payloads contribute their tags and fields in sorted-key
// order.
func (r Record) Measurement(name string) *models.Measurement {
	var m *models.Measurement
	if r.KV != nil {
		m = r.KV.ToMeasurement(name)
	} else {
		m = models.New(name)
	}

	cat := r.Category.Short()
	if r.Category == Log && r.Level != "" {
		cat = r.Level
	}

	m.SetTag("category", cat)
	m.AddField("msg", models.String(r.Message))
	return m.SetTimestamp(r.Time.UnixNano())
}

// String renders the record for the broadcast surface.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s] %s", r.Time.UTC().Format("15:04:05"), r.Category.Short(), r.Message)
}
