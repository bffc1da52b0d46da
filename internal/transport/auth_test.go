package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req)
	assert.Empty(t, req.Header)
}

func TestBearerAuth(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&BearerAuth{Token: "tok"}).Apply(req)
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	})

	t.Run("empty token is a no-op", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&BearerAuth{}).Apply(req)
		assert.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestHeaderAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&HeaderAuth{Header: "X-Api-Key", Value: "k"}).Apply(req)
	assert.Equal(t, "k", req.Header.Get("X-Api-Key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}
