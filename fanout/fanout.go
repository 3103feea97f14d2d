package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-importer/internal/types"
)

// ErrNoDestination is returned when a fan-out is requested with no destinations
var ErrNoDestination = errors.New("no destination selected")

// DestinationImporter imports a product into one destination store
type DestinationImporter interface {
	ImportToDestination(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, destinationID string) types.ImportResult
}

// Destination is a store the user selected as an import target
type Destination struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProgressFunc is called after each destination settles
type ProgressFunc func(completed, total int)

// FanOut imports one product into many destinations concurrently
type FanOut struct {
	client DestinationImporter
	logger types.Logger
}

// New creates a fan-out over client
func New(client DestinationImporter, logger types.Logger) *FanOut {
	return &FanOut{
		client: client,
		logger: logger,
	}
}

// ImportToDestinations issues one import per destination, all at once, and
// waits for every one of them to settle. A failing or panicking destination
// never affects its siblings. Results are appended in settlement order.
//
// There is no concurrency cap beyond len(destinations); batch externally if
// the backend rate-limits.
func (f *FanOut) ImportToDestinations(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, destinations []Destination, progress ProgressFunc) (types.FanOutReport, error) {
	if len(destinations) == 0 {
		return types.FanOutReport{}, ErrNoDestination
	}

	startTime := time.Now()
	report := types.FanOutReport{
		Total:   len(destinations),
		Results: make([]types.PerDestinationResult, 0, len(destinations)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	settle := func(result types.PerDestinationResult) {
		mu.Lock()
		defer mu.Unlock()

		report.Completed++
		if result.Success {
			report.Successful++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)

		if progress != nil {
			progress(report.Completed, report.Total)
		}
	}

	for _, dest := range destinations {
		wg.Add(1)
		go func(dest Destination) {
			defer wg.Done()
			settle(f.importOne(ctx, product, options, dest))
		}(dest)
	}
	wg.Wait()

	f.logger.Infof("Fan-out of %q finished in %v: %d/%d succeeded", product.Title, time.Since(startTime), report.Successful, report.Total)
	return report, nil
}

func (f *FanOut) importOne(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, dest Destination) (result types.PerDestinationResult) {
	result = types.PerDestinationResult{
		DestinationID:   dest.ID,
		DestinationName: dest.Name,
	}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Errorf("Import into %s panicked: %v", dest.ID, r)
			result.Success = false
			result.CreatedID = ""
			result.Error = fmt.Sprintf("unexpected error: %v", r)
		}
	}()

	res := f.client.ImportToDestination(ctx, product, options, dest.ID)
	if !res.OK {
		f.logger.Warnf("Import into %s failed: %s %s", dest.ID, res.Code, res.Message)
		result.Error = res.Message
		if result.Error == "" {
			result.Error = string(res.Code)
		}
		return result
	}

	result.Success = true
	result.CreatedID = res.CreatedID
	return result
}
