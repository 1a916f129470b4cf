package security

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"

	"github.com/pion/dtls/v3"
	"github.com/stretchr/testify/assert"

	dtlsimpl "github.com/dep2p/go-icesip/internal/core/security/dtls"
	tlsimpl "github.com/dep2p/go-icesip/internal/core/security/tls"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		fatal     bool
	}{
		{"nil", nil, false, false},
		{"deadline", os.ErrDeadlineExceeded, true, false},
		{"dtls temporary", &dtls.TemporaryError{Err: errors.New("busy")}, true, false},
		{"dtls timeout", &dtls.TimeoutError{Err: errors.New("slow")}, true, false},
		{"eof", io.EOF, false, true},
		{"closed pipe", fmt.Errorf("write: %w", io.ErrClosedPipe), false, true},
		{"net closed", net.ErrClosed, false, true},
		{"tls shutdown", tlsimpl.ErrShutdown, false, true},
		{"dtls shutdown", dtlsimpl.ErrShutdown, false, true},
		{"dtls fatal", &dtls.FatalError{Err: errors.New("bad mac")}, false, true},
		{"dtls handshake", &dtls.HandshakeError{Err: errors.New("no suite")}, false, true},
		{"tls alert", tls.AlertError(40), false, true},
		{"other", errors.New("something else"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err), "IsTransient")
			assert.Equal(t, tt.fatal, IsFatal(tt.err), "IsFatal")
		})
	}
}
