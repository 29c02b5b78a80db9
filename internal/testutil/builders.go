package testutil

import (
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			RequestingUser: "test-user",
			RequestedModel: "base",
			Kind:           model.JobKindPublicURL,
			SourceLocator:  "https://example.com/audio.mp3",
		},
	}
}

// WithUser sets the requesting user.
func (b *JobRequestBuilder) WithUser(username string) *JobRequestBuilder {
	b.req.RequestingUser = username
	return b
}

// WithModel sets the requested transcription model.
func (b *JobRequestBuilder) WithModel(m model.TranscriptionModel) *JobRequestBuilder {
	b.req.RequestedModel = m
	return b
}

// WithSourceURL configures a public-url job sourced from the given URL.
func (b *JobRequestBuilder) WithSourceURL(url string) *JobRequestBuilder {
	b.req.Kind = model.JobKindPublicURL
	b.req.SourceLocator = url
	b.req.ContentHash = nil
	return b
}

// WithUpload configures a file job with the given storage key and content hash.
func (b *JobRequestBuilder) WithUpload(storageKey, contentHash string) *JobRequestBuilder {
	b.req.Kind = model.JobKindFile
	b.req.SourceLocator = storageKey
	b.req.ContentHash = &contentHash
	return b
}

// WithLiveTranscribe sets the live transcription flag.
func (b *JobRequestBuilder) WithLiveTranscribe(live bool) *JobRequestBuilder {
	b.req.LiveTranscribe = live
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// AccountRequestBuilder provides a fluent interface for building CreateAccountRequest objects.
type AccountRequestBuilder struct {
	req *model.CreateAccountRequest
}

// NewAccountRequest creates a new AccountRequestBuilder with sensible defaults.
func NewAccountRequest() *AccountRequestBuilder {
	return &AccountRequestBuilder{
		req: &model.CreateAccountRequest{
			Username:       "test-user",
			RegisteredFrom: "127.0.0.1",
		},
	}
}

// WithUsername sets the username.
func (b *AccountRequestBuilder) WithUsername(username string) *AccountRequestBuilder {
	b.req.Username = username
	return b
}

// WithRegisteredFrom sets the registration source address.
func (b *AccountRequestBuilder) WithRegisteredFrom(addr string) *AccountRequestBuilder {
	b.req.RegisteredFrom = addr
	return b
}

// Build returns the constructed CreateAccountRequest.
func (b *AccountRequestBuilder) Build() *model.CreateAccountRequest {
	return b.req
}
