package utils

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAndServeTLSDoesNotMutateCallerConfig(t *testing.T) {
	orig := &tls.Config{}
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, time.Second)
	srv.TLSConfig = orig

	// Fails on the missing key pair before any listener is opened; by then
	// the server has already applied its protocol defaults to a clone.
	err := srv.ListenAndServeTLS("testdata/no-such-cert.pem", "testdata/no-such-key.pem")
	require.Error(t, err)
	assert.Nil(t, orig.NextProtos)
}
