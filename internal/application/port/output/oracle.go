package output

import (
	"context"

	"comment-extractor/internal/domain/entity"
)

// OraclePort is the opaque AI request/response service.
type OraclePort interface {
	Request(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error)
}

// OracleTransport is a single request/response round trip to a model
// provider. Channels multiplex many logical requests over one transport.
type OracleTransport interface {
	Complete(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error)
}
