package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-importer/adapters"
	"storefront-importer/extractor"
	"storefront-importer/fanout"
	"storefront-importer/internal/types"
)

const (
	actionImport       = "import"
	actionListing      = "import_listing"
	actionRetry        = "retry"
	actionDestinations = "import_destinations"
)

// Importer is the backend client the orchestrator submits through
type Importer interface {
	ImportProduct(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions) types.ImportResult
	ImportBulk(ctx context.Context, products []types.CanonicalProduct, options types.ImportOptions) types.ImportResult
	ImportToDestination(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, destinationID string) types.ImportResult
}

// ProductSource turns URLs into products
type ProductSource interface {
	Extract(ctx context.Context, rawURL string) (types.CanonicalProduct, error)
	ExtractListing(ctx context.Context, rawURL string) ([]types.CanonicalProduct, error)
}

// State is the stage of the current import attempt
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateExtracting State = "extracting"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Attempt is one submitted import. The last one is kept so a retry can send
// the identical payload again.
type Attempt struct {
	ID       string                   `json:"id"`
	URL      string                   `json:"url"`
	Options  types.ImportOptions      `json:"options"`
	Element  string                   `json:"element,omitempty"`
	Platform types.PlatformID         `json:"platform"`
	Products []types.CanonicalProduct `json:"products"`
	Bulk     bool                     `json:"bulk"`
}

// Orchestrator drives import attempts through
// idle -> validating -> extracting -> submitting -> completed | failed.
// Only the stored attempt is locked, so hooks may call back into the
// orchestrator. Fan-outs never touch the stored attempt.
type Orchestrator struct {
	source   ProductSource
	client   Importer
	fanout   *fanout.FanOut
	debug    *DebugConfig
	handler  ResponseHandler
	activity ActivityLogger
	logger   logrus.FieldLogger

	mu   sync.Mutex
	last *Attempt

	stateMu sync.RWMutex
	state   State

	now func() time.Time
}

// New creates an orchestrator. A nil client is allowed: every import then
// fails with CLIENT_NOT_LOADED.
func New(source ProductSource, client Importer, logger logrus.FieldLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		client: client,
		debug:  NewDebugConfig(nil),
		logger: logger,
		state:  StateIdle,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if client != nil {
		o.fanout = fanout.New(client, logger)
	}
	return o
}

// State returns the stage of the most recent attempt
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Debug returns the runtime debug flag
func (o *Orchestrator) Debug() *DebugConfig {
	return o.debug
}

// LastAttempt returns the attempt a retry would replay
func (o *Orchestrator) LastAttempt() (Attempt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.last == nil {
		return Attempt{}, false
	}
	return *o.last, true
}

// Import extracts the product at rawURL and submits it with options
func (o *Orchestrator) Import(ctx context.Context, rawURL string, options types.ImportOptions) types.ImportResult {
	return o.ImportFor(ctx, "", rawURL, options)
}

// QuickImport imports with every enrichment off
func (o *Orchestrator) QuickImport(ctx context.Context, rawURL string) types.ImportResult {
	return o.Import(ctx, rawURL, types.QuickImport)
}

// FullImport imports with every enrichment on
func (o *Orchestrator) FullImport(ctx context.Context, rawURL string) types.ImportResult {
	return o.Import(ctx, rawURL, types.FullImport)
}

// ImportWithReviews imports with review import forced on
func (o *Orchestrator) ImportWithReviews(ctx context.Context, rawURL string) types.ImportResult {
	return o.Import(ctx, rawURL, types.ImportWithReviews)
}

// ImportFor is Import on behalf of a UI element, which receives the loading
// and result states through the response handler
func (o *Orchestrator) ImportFor(ctx context.Context, element, rawURL string, options types.ImportOptions) types.ImportResult {
	attempt := o.newAttempt(element, rawURL, options)
	if result, ok := o.validate(attempt); !ok {
		return o.finish(attempt, actionImport, result)
	}

	o.setState(StateExtracting)
	product, err := o.source.Extract(ctx, rawURL)
	if err != nil {
		return o.finish(attempt, actionImport, extractionFailure(err))
	}

	attempt.Platform = product.Platform
	attempt.Products = []types.CanonicalProduct{product}
	o.trace(attempt, "extracted", logrus.Fields{
		"title":    product.Title,
		"price":    product.Price,
		"images":   len(product.Images),
		"variants": len(product.Variants),
		"reviews":  len(product.Reviews),
	})

	return o.submit(ctx, attempt, actionImport)
}

// ImportListing extracts every product card on a listing page and submits
// them in one bulk call
func (o *Orchestrator) ImportListing(ctx context.Context, rawURL string, options types.ImportOptions) types.ImportResult {
	attempt := o.newAttempt("", rawURL, options)
	attempt.Bulk = true
	if result, ok := o.validate(attempt); !ok {
		return o.finish(attempt, actionListing, result)
	}

	o.setState(StateExtracting)
	products, err := o.source.ExtractListing(ctx, rawURL)
	if err != nil {
		return o.finish(attempt, actionListing, extractionFailure(err))
	}
	if len(products) == 0 {
		return o.finish(attempt, actionListing, types.Failure(types.ErrInvalidURL, "No products found on listing page"))
	}

	attempt.Platform = products[0].Platform
	attempt.Products = products
	o.trace(attempt, "extracted", logrus.Fields{"items": len(products)})

	return o.submit(ctx, attempt, actionListing)
}

// Retry replays the last submitted attempt with the identical payload. It
// reports false, and does nothing, when no attempt has been submitted yet.
func (o *Orchestrator) Retry(ctx context.Context) (types.ImportResult, bool) {
	last, ok := o.LastAttempt()
	if !ok {
		o.logger.Debug("Retry requested with no previous attempt")
		return types.ImportResult{}, false
	}

	attempt := last
	previous := attempt.ID
	attempt.ID = uuid.NewString()
	o.trace(&attempt, "retry", logrus.Fields{"retry_of": previous})

	return o.submit(ctx, &attempt, actionRetry), true
}

// ListenForRetry replays the last attempt on every signal until ctx is done
// or signals is closed
func (o *Orchestrator) ListenForRetry(ctx context.Context, signals <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			o.Retry(ctx)
		}
	}
}

// ImportToDestinations extracts the product once and imports it into every
// destination concurrently
func (o *Orchestrator) ImportToDestinations(ctx context.Context, rawURL string, options types.ImportOptions, destinations []fanout.Destination, progress fanout.ProgressFunc) (types.FanOutReport, error) {
	if len(destinations) == 0 {
		return types.FanOutReport{}, fanout.ErrNoDestination
	}
	if !validURL(rawURL) {
		return types.FanOutReport{}, fmt.Errorf("%w: %q", extractor.ErrInvalidURL, rawURL)
	}
	if o.fanout == nil || o.source == nil {
		return types.FanOutReport{}, errors.New("import client is not loaded")
	}

	product, err := o.source.Extract(ctx, rawURL)
	if err != nil {
		return types.FanOutReport{}, err
	}

	report, err := o.fanout.ImportToDestinations(ctx, product, options, destinations, progress)
	if err != nil {
		return report, err
	}

	record := types.ActivityRecord{
		AttemptID: uuid.NewString(),
		Action:    actionDestinations,
		Platform:  product.Platform,
		URL:       rawURL,
		Success:   report.Outcome() != types.FanOutTotalFailure,
		Message:   report.Message(),
		Timestamp: o.now(),
	}
	if o.activity != nil {
		o.activity.LogAction(record)
	}

	return report, nil
}

func (o *Orchestrator) newAttempt(element, rawURL string, options types.ImportOptions) *Attempt {
	attempt := &Attempt{
		ID:       uuid.NewString(),
		URL:      rawURL,
		Options:  options,
		Element:  element,
		Platform: types.PlatformUnknown,
	}

	o.setState(StateValidating)
	o.trace(attempt, "validating", logrus.Fields{"options": options})
	return attempt
}

func (o *Orchestrator) validate(attempt *Attempt) (types.ImportResult, bool) {
	if !validURL(attempt.URL) {
		return types.Failure(types.ErrInvalidURL, "A valid product URL is required"), false
	}
	if o.client == nil || o.source == nil {
		return types.Failure(types.ErrClientNotLoaded, "Import client is not loaded"), false
	}
	return types.ImportResult{}, true
}

func (o *Orchestrator) submit(ctx context.Context, attempt *Attempt, action string) types.ImportResult {
	o.setState(StateSubmitting)

	stored := *attempt
	o.mu.Lock()
	o.last = &stored
	o.mu.Unlock()

	if o.handler != nil {
		o.handler.SetButtonState(attempt.Element, ButtonLoading)
	}
	o.trace(attempt, "submitting", logrus.Fields{"products": len(attempt.Products), "bulk": attempt.Bulk})

	return o.finish(attempt, action, o.send(ctx, attempt))
}

// send isolates the client call; a panic becomes UNEXPECTED_ERROR
func (o *Orchestrator) send(ctx context.Context, attempt *Attempt) (result types.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			result = types.Failure(types.ErrUnexpected, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	if attempt.Bulk {
		return o.client.ImportBulk(ctx, attempt.Products, attempt.Options)
	}
	return o.client.ImportProduct(ctx, attempt.Products[0], attempt.Options)
}

func (o *Orchestrator) finish(attempt *Attempt, action string, result types.ImportResult) types.ImportResult {
	result.CanFallback = !result.OK && result.Code.FallbackEligible()

	button := ButtonSuccess
	if result.OK {
		o.setState(StateCompleted)
	} else {
		o.setState(StateFailed)
		button = ButtonError
	}

	if o.handler != nil {
		o.handler.HandleResponse(result, attempt.Element)
		o.handler.SetButtonState(attempt.Element, button)
	}

	record := types.ActivityRecord{
		AttemptID: attempt.ID,
		Action:    action,
		Platform:  attempt.Platform,
		URL:       attempt.URL,
		Success:   result.OK,
		JobID:     result.JobID,
		Code:      result.Code,
		Message:   result.Message,
		Timestamp: o.now(),
	}
	if o.activity != nil {
		o.activity.LogAction(record)
	}

	entry := o.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"action":     action,
		"platform":   attempt.Platform,
		"url":        attempt.URL,
		"success":    result.OK,
	})
	if result.OK {
		entry.WithField("job_id", result.JobID).Info("Import completed")
	} else {
		entry.WithFields(logrus.Fields{"code": result.Code, "can_fallback": result.CanFallback}).Warn(result.Message)
	}

	return result
}

// trace logs a stage's input or output when debug mode is on
func (o *Orchestrator) trace(attempt *Attempt, stage string, fields logrus.Fields) {
	if !o.debug.Enabled() {
		return
	}
	o.logger.WithFields(fields).WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"stage":      stage,
		"state":      o.State(),
	}).Info("debug")
}

func validURL(rawURL string) bool {
	return strings.TrimSpace(rawURL) != "" && adapters.ValidProductURL(rawURL)
}

func extractionFailure(err error) types.ImportResult {
	switch {
	case errors.Is(err, extractor.ErrInvalidURL):
		return types.Failure(types.ErrInvalidURL, "A valid product URL is required")
	case errors.Is(err, extractor.ErrListingUnsupported):
		return types.Failure(types.ErrInvalidURL, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.Failure(types.ErrNetwork, err.Error())
	default:
		return types.Failure(types.ErrNetwork, fmt.Sprintf("Failed to load product page: %v", err))
	}
}
