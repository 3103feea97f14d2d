package orchestrator

import "storefront-importer/internal/types"

// ButtonState is the visual state of the control that triggered an import
type ButtonState string

const (
	ButtonIdle    ButtonState = "idle"
	ButtonLoading ButtonState = "loading"
	ButtonSuccess ButtonState = "success"
	ButtonError   ButtonState = "error"
)

// ResponseHandler updates whatever surface started the import
type ResponseHandler interface {
	SetButtonState(element string, state ButtonState)
	HandleResponse(result types.ImportResult, element string)
}

// ActivityLogger receives one record per settled attempt
type ActivityLogger interface {
	LogAction(record types.ActivityRecord)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithResponseHandler installs the UI hook
func WithResponseHandler(h ResponseHandler) Option {
	return func(o *Orchestrator) { o.handler = h }
}

// WithActivityLogger installs the activity sink
func WithActivityLogger(l ActivityLogger) Option {
	return func(o *Orchestrator) { o.activity = l }
}

// WithDebugConfig replaces the in-memory debug flag
func WithDebugConfig(d *DebugConfig) Option {
	return func(o *Orchestrator) { o.debug = d }
}
