package fetcher

import (
	"context"

	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
)

type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
	) (FetchResult, failure.ClassifiedError)
}
