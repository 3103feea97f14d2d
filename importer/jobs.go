package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"storefront-importer/internal/types"
)

// ErrUnknownJobStatus is returned when the backend reports a state outside
// pending/running/completed/failed
var ErrUnknownJobStatus = errors.New("unknown job status")

// GetJobStatus queries the backend once for the state of an asynchronous
// import job. Poll cadence belongs to the caller.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (types.JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return types.JobStatus{}, errors.New("job id is required")
	}

	status, body, err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return types.JobStatus{}, err
	}
	if status != http.StatusOK {
		return types.JobStatus{}, fmt.Errorf("job status request returned %d", status)
	}

	var job types.JobStatus
	if err := json.Unmarshal(body, &job); err != nil {
		return types.JobStatus{}, fmt.Errorf("failed to decode job status: %w", err)
	}

	switch job.State {
	case types.JobPending, types.JobRunning, types.JobCompleted, types.JobFailed:
	default:
		return types.JobStatus{}, fmt.Errorf("%w: %q", ErrUnknownJobStatus, job.State)
	}

	if job.JobID == "" {
		job.JobID = jobID
	}
	return job, nil
}
