package archive

import (
	"context"
	"io"

	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/plan"
)

// Target is the resolved remote identity of a download unit. URL is the
// archive resource to hit; Body, when non-nil, is the serialized retrieval
// descriptor posted to it (bulk-request archives). Filename is the canonical
// local name the payload is stored under.
type Target struct {
	URL      string
	Body     []byte
	Filename string
}

// Locator derives the Target for a unit. The derivation is pure: the same
// unit always yields an identical Target.
type Locator interface {
	Locate(u plan.Unit) (Target, error)
}

// Retriever performs a single transfer attempt for a target, streaming the
// payload into w. Implementations block for the full duration of the
// server-side retrieval; cancellation and deadlines come from ctx.
type Retriever interface {
	Retrieve(ctx context.Context, creds credentials.Credentials, t Target, w io.Writer) error
}
