package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/execgate/internal/model"
)

// JSONPrinter prints execgate information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// instanceItem represents an instance in the list output.
type instanceItem struct {
	Pool          string     `json:"pool"`
	Instance      int        `json:"instance"`
	LastRequestAt *time.Time `json:"last_request_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintInstances prints instance records in JSON format.
func (j *JSONPrinter) PrintInstances(records []model.InstanceRecord) error {
	items := make([]instanceItem, len(records))
	for i, r := range records {
		items[i] = instanceItem{
			Pool:     r.Pool,
			Instance: int(r.ID),
		}
		if r.LastRequestAt != nil {
			utcTime := r.LastRequestAt.UTC()
			items[i].LastRequestAt = &utcTime
		}
	}

	return j.encode(items)
}

// PrintRunResult prints the gateway response as the gateway returned it.
func (j *JSONPrinter) PrintRunResult(resp model.GatewayResponse) error {
	return j.encode(resp)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
