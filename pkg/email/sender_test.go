package email_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{To: "user@example.com", Subject: "Reset", HTML: "<p>hi</p>"}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.To = "not-an-address"
	require.ErrorIs(t, bad.Validate(), email.ErrInvalidRecipient)

	bad = valid
	bad.Subject = ""
	require.ErrorIs(t, bad.Validate(), email.ErrSendFailed)

	bad = valid
	bad.HTML = ""
	require.ErrorIs(t, bad.Validate(), email.ErrSendFailed)
}

func TestDevSender_WritesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	err := sender.Send(context.Background(), email.Message{
		To:      "user@example.com",
		Subject: "Password Reset",
		HTML:    "<p>click the link</p>",
		Tag:     "password-reset",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".html" {
			htmlFile = e.Name()
		}
	}
	require.NotEmpty(t, htmlFile)
	assert.True(t, strings.HasSuffix(htmlFile, "_password-reset.html"), htmlFile)

	body, err := os.ReadFile(filepath.Join(dir, htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>click the link</p>", string(body))
}

func TestDevSender_RejectsInvalidMessage(t *testing.T) {
	t.Parallel()

	sender := email.NewDevSender(t.TempDir())
	err := sender.Send(context.Background(), email.Message{To: "nope"})
	require.ErrorIs(t, err, email.ErrInvalidRecipient)
}

func TestNewPostmarkSender_ConfigValidation(t *testing.T) {
	t.Parallel()

	cfg := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "no-reply@example.com",
	}
	_, err := email.NewPostmarkSender(cfg)
	require.NoError(t, err)

	missing := cfg
	missing.PostmarkServerToken = ""
	_, err = email.NewPostmarkSender(missing)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	badSender := cfg
	badSender.SenderEmail = "not-an-address"
	_, err = email.NewPostmarkSender(badSender)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	badReply := cfg
	badReply.ReplyToEmail = "also-bad"
	_, err = email.NewPostmarkSender(badReply)
	require.ErrorIs(t, err, email.ErrInvalidConfig)
}
