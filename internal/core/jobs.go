// Package core provides the ports between the service layer and the data
// layer of the subgencluster broker.
package core

import (
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
)

// JobKind is re-exported for use in HTTP handlers to avoid direct coupling to
// the model package.
type JobKind = model.JobKind

// CreateJobRequest is re-exported for use in HTTP handlers to avoid direct
// coupling to the model package.
type CreateJobRequest = model.CreateJobRequest
