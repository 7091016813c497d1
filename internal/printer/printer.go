package printer

import "github.com/slok/execgate/internal/model"

// Printer knows how to print execgate information in different formats.
type Printer interface {
	PrintInstances(records []model.InstanceRecord) error
	PrintRunResult(resp model.GatewayResponse) error
	PrintMessage(msg string) error
}
