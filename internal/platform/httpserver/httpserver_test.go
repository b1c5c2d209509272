package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesTimeouts(t *testing.T) {
	srv := New(":8080", http.NotFoundHandler(), nil)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, writeTimeout, srv.WriteTimeout)
	assert.Equal(t, maxHeaderBytes, srv.MaxHeaderBytes)
	assert.Nil(t, srv.ErrorLog)
}

func TestNewRoutesServerErrorsToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	srv := New(":0", http.NotFoundHandler(), logger)
	require.NotNil(t, srv.ErrorLog)

	srv.ErrorLog.Printf("http: TLS handshake error from 10.0.0.1:5555: EOF")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"component":"http_server"`)
	assert.Contains(t, buf.String(), "TLS handshake error")
}
