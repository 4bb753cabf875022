package dependency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIMDSTagFetcher_RequestsTokenThenTagWithIt(t *testing.T) {
	var sawToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/api/token":
			require.Equal(t, http.MethodPut, r.Method)
			require.Equal(t, "21600", r.Header.Get(imdsTokenTTLHdr))
			w.Write([]byte("test-token"))
		case "/latest/meta-data/tags/instance/Name":
			sawToken = r.Header.Get(imdsTokenHdr)
			w.Write([]byte("my-instance"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fetch := newIMDSTagFetcher(srv.Client(), srv.URL+"/latest")

	value, err := fetch(context.Background(), "Name")
	require.NoError(t, err)
	assert.Equal(t, "my-instance", value)
	assert.Equal(t, "test-token", sawToken)
}

func TestIMDSTagFetcher_NonOKTokenResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetch := newIMDSTagFetcher(srv.Client(), srv.URL+"/latest")
	_, err := fetch(context.Background(), "Name")
	assert.Error(t, err)
}
