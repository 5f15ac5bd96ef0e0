package htmldoc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(shadowHTML))
	}))
	defer srv.Close()

	d, err := Fetch(context.Background(), srv.Client(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Len(t, query(t, d, "li", false), 2)

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")

	_, err = Fetch(context.Background(), nil, "://bad")
	assert.Error(t, err)
}
