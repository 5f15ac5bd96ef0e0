package htmldoc

import (
	"context"
	"net/http"

	"comment-extractor/internal/application/port/output"
)

// Source fetches each URL into a fresh static Document.
type Source struct {
	Client *http.Client
}

func (s Source) Open(ctx context.Context, rawURL string) (output.DocumentPort, func(), error) {
	doc, err := Fetch(ctx, s.Client, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return doc, func() {}, nil
}
