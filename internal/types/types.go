package types

import (
	"time"
)

// PlatformID identifies the marketplace a product page belongs to
type PlatformID string

const (
	PlatformAmazon      PlatformID = "amazon"
	PlatformAliExpress  PlatformID = "aliexpress"
	PlatformAlibaba     PlatformID = "alibaba"
	PlatformEbay        PlatformID = "ebay"
	PlatformEtsy        PlatformID = "etsy"
	PlatformWalmart     PlatformID = "walmart"
	PlatformTemu        PlatformID = "temu"
	PlatformShein       PlatformID = "shein"
	PlatformShopify     PlatformID = "shopify"
	PlatformWooCommerce PlatformID = "woocommerce"

	// PlatformUnknown is returned for URLs no registered extractor claims
	PlatformUnknown PlatformID = "unknown"
)

// Availability is the normalized stock state of a product
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityLimited    Availability = "limited"
	AvailabilityUnknown    Availability = "unknown"
)

// Price is an amount in a currency. Amount is never negative.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Video is a product video with an optional poster frame
type Video struct {
	URL       string `json:"url"`
	PosterURL string `json:"poster_url,omitempty"`
}

// Variant is one purchasable option of a product (a size, a color, ...)
type Variant struct {
	Name       string `json:"name"`
	OptionType string `json:"option_type"`
	Price      *Price `json:"price,omitempty"`
	Stock      *int   `json:"stock,omitempty"`
	Image      string `json:"image,omitempty"`
}

// Review is a customer review scraped from the product page
type Review struct {
	Author string   `json:"author"`
	Body   string   `json:"body"`
	Rating *float64 `json:"rating,omitempty"`
	Images []string `json:"images"`
	Video  string   `json:"video,omitempty"`
}

// CanonicalProduct is the platform-independent product record every extractor produces.
//
// Platform and SourceURL are always set. Pointer fields are nil when the page had no
// source element for them; a non-nil Price with Amount 0 means an element was found
// but its text could not be parsed. Empty strings stand for "not found".
type CanonicalProduct struct {
	Platform        PlatformID   `json:"platform"`
	SourceURL       string       `json:"source_url"`
	SourceProductID string       `json:"source_product_id,omitempty"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Price           *Price       `json:"price"`
	CompareAtPrice  *Price       `json:"compare_at_price,omitempty"`
	Images          []string     `json:"images"`
	Videos          []Video      `json:"videos"`
	Variants        []Variant    `json:"variants"`
	Reviews         []Review     `json:"reviews"`
	Brand           string       `json:"brand,omitempty"`
	Category        string       `json:"category,omitempty"`
	Rating          *float64     `json:"rating"`
	ReviewCount     *int         `json:"review_count"`
	Availability    Availability `json:"availability"`
	ExtractedAt     time.Time    `json:"extracted_at"`
}

// ImportOptions toggles the backend's optional import work.
// The zero value is the conservative "quick" profile.
type ImportOptions struct {
	EnrichWithAI  bool `json:"enrich_with_ai"`
	ImportReviews bool `json:"import_reviews"`
	AutoPublish   bool `json:"auto_publish"`
}

var (
	// QuickImport turns every enrichment off
	QuickImport = ImportOptions{}

	// FullImport turns every enrichment on
	FullImport = ImportOptions{EnrichWithAI: true, ImportReviews: true, AutoPublish: true}

	// ImportWithReviews forces review import and nothing else
	ImportWithReviews = ImportOptions{ImportReviews: true}
)

// ErrorCode classifies a failed import
type ErrorCode string

const (
	ErrInvalidURL      ErrorCode = "INVALID_URL"
	ErrClientNotLoaded ErrorCode = "CLIENT_NOT_LOADED"
	ErrNetwork         ErrorCode = "NETWORK_ERROR"
	ErrInternal        ErrorCode = "INTERNAL"
	ErrUnexpected      ErrorCode = "UNEXPECTED_ERROR"
)

// FallbackEligible reports whether a caller may reasonably retry or degrade
// to an alternate strategy after a failure with this code.
func (c ErrorCode) FallbackEligible() bool {
	switch c {
	case ErrClientNotLoaded, ErrNetwork, ErrInternal, ErrUnexpected:
		return true
	default:
		return false
	}
}

// ParseErrorCode maps a backend error_code string onto the closed ErrorCode set.
// Unknown codes map to ErrUnexpected.
func ParseErrorCode(s string) ErrorCode {
	switch c := ErrorCode(s); c {
	case ErrInvalidURL, ErrClientNotLoaded, ErrNetwork, ErrInternal, ErrUnexpected:
		return c
	default:
		return ErrUnexpected
	}
}

// ImportResult is the outcome of one import call
type ImportResult struct {
	OK          bool      `json:"ok"`
	JobID       string    `json:"job_id,omitempty"`
	CreatedID   string    `json:"created_id,omitempty"`
	Code        ErrorCode `json:"code,omitempty"`
	Message     string    `json:"message,omitempty"`
	CanFallback bool      `json:"can_fallback,omitempty"`
}

// Failure builds a failed ImportResult
func Failure(code ErrorCode, message string) ImportResult {
	return ImportResult{OK: false, Code: code, Message: message}
}

// PerDestinationResult is the outcome of importing into one destination store
type PerDestinationResult struct {
	DestinationID   string `json:"destination_id"`
	DestinationName string `json:"destination_name"`
	Success         bool   `json:"success"`
	CreatedID       string `json:"created_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// FanOutReport aggregates a multi-destination import.
// Results are in settlement order; correlate them by DestinationID.
type FanOutReport struct {
	Total      int                    `json:"total"`
	Completed  int                    `json:"completed"`
	Successful int                    `json:"successful"`
	Failed     int                    `json:"failed"`
	Results    []PerDestinationResult `json:"results"`
}

// FanOutOutcome is the overall tier of a finished fan-out
type FanOutOutcome string

const (
	FanOutFullSuccess    FanOutOutcome = "full_success"
	FanOutPartialSuccess FanOutOutcome = "partial_success"
	FanOutTotalFailure   FanOutOutcome = "total_failure"
)

// Outcome classifies the finished report
func (r *FanOutReport) Outcome() FanOutOutcome {
	switch {
	case r.Failed == 0 && r.Successful > 0:
		return FanOutFullSuccess
	case r.Successful > 0:
		return FanOutPartialSuccess
	default:
		return FanOutTotalFailure
	}
}

// Message is the user-facing summary for the report's outcome tier
func (r *FanOutReport) Message() string {
	switch r.Outcome() {
	case FanOutFullSuccess:
		return "Product imported to all selected stores"
	case FanOutPartialSuccess:
		return "Product imported to some stores; others failed"
	default:
		return "Product import failed for all selected stores"
	}
}

// JobState is the lifecycle state of an asynchronous backend job
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the job will not change state again
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobProgress is optional progress metadata reported by the backend
type JobProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Stage   string `json:"stage,omitempty"`
}

// JobStatus is the backend's view of an asynchronous post-import job
type JobStatus struct {
	JobID    string       `json:"job_id"`
	State    JobState     `json:"status"`
	Progress *JobProgress `json:"progress,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ActivityRecord is one structured entry emitted after an import attempt settles
type ActivityRecord struct {
	AttemptID string     `json:"attempt_id"`
	Action    string     `json:"action"`
	Platform  PlatformID `json:"platform"`
	URL       string     `json:"url"`
	Success   bool       `json:"success"`
	JobID     string     `json:"job_id,omitempty"`
	Code      ErrorCode  `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
