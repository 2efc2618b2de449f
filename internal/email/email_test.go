package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.calls++
	return s.err
}

func TestBuildMessage(t *testing.T) {
	raw := string(BuildMessage("noreply@yuva.example", "ayse@example.com", "Pamuk için sahiplenme isteği", "Merhaba"))

	assert.Contains(t, raw, "To: ayse@example.com\r\n")
	assert.Contains(t, raw, "From: noreply@yuva.example\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nMerhaba\r\n"))
}

func TestCompositeEmailSender(t *testing.T) {
	ok := &stubSender{}
	failing := &stubSender{err: errors.New("relay down")}
	cs := NewCompositeEmailSender(ok, nil, failing)

	err := cs.Send(context.Background(), []string{"a@b.co"}, "s", []byte("m"))

	assert.ErrorContains(t, err, "relay down")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), nil, "", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "out.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@b.co"}, "Konu", []byte("gövde\r\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "To: a@b.co Subject: Konu")
	assert.Contains(t, string(data), "gövde")
}

func TestMailKind(t *testing.T) {
	assert.Equal(t, KindAdoption, mailKind("Yuva: Pamuk için Sahiplenme isteği"))
	assert.Equal(t, KindOther, mailKind("Hoş geldiniz"))
	assert.Equal(t, "mockemail:ayse@example.com:adoption", MockMailKey("Ayse@Example.com", KindAdoption))
}

func TestLoggingSender(t *testing.T) {
	assert.NoError(t, NewLoggingSender(zap.NewNop()).Send(context.Background(), []string{"a@b.co"}, "s", []byte("m")))
}
