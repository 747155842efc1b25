// Package imapdraft implements the IMAP draft sink.
package imapdraft

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/outbound"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
)

// Drafts stores generated replies in an IMAP drafts folder for human
// review. A fresh connection is dialed per message; the pipe handler
// stores at most one.
type Drafts struct {
	cfg    config.IMAPConfig
	logger *zap.Logger
}

// NewDrafts creates a drafts handler from the IMAP configuration block.
func NewDrafts(cfg config.IMAPConfig, logger *zap.Logger) *Drafts {
	return &Drafts{cfg: cfg, logger: logger}
}

// SaveDraft builds the reply, ensures the drafts folder exists and
// appends the message with the draft and seen flags set. It returns the
// Message-ID of the stored message.
func (d *Drafts) SaveDraft(ctx context.Context, reply *core.GeneratedReply) (string, error) {
	messageID, raw, err := outbound.Build(reply, map[string]string{
		"X-Mail-Agent-Draft": "pending-review",
	})
	if err != nil {
		return "", err
	}

	client, err := d.connect()
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Logout().Wait() }()

	// Best-effort folder creation: the folder usually exists already and
	// some servers refuse CREATE; neither is fatal for the append.
	if err := client.Create(d.cfg.DraftsFolder, nil).Wait(); err != nil {
		d.logger.Debug("Drafts folder create skipped",
			zap.String("folder", d.cfg.DraftsFolder),
			zap.Error(err))
	}

	appendCmd := client.Append(d.cfg.DraftsFolder, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft, imap.FlagSeen},
		Time:  time.Now(),
	})
	if _, err := appendCmd.Write(raw); err != nil {
		return "", fmt.Errorf("failed to write draft: %w", err)
	}
	if err := appendCmd.Close(); err != nil {
		return "", fmt.Errorf("failed to finish draft append: %w", err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return "", fmt.Errorf("draft append rejected: %w", err)
	}

	d.logger.Debug("Draft saved",
		zap.String("folder", d.cfg.DraftsFolder),
		zap.String("message_id", messageID))

	return messageID, nil
}

// VerifyConnection logs in and reports whether the drafts folder
// exists. Used by the diagnostic CLI.
func (d *Drafts) VerifyConnection() (bool, string) {
	client, err := d.connect()
	if err != nil {
		return false, err.Error()
	}
	defer func() { _ = client.Logout().Wait() }()

	mailboxes, err := client.List("", d.cfg.DraftsFolder, nil).Collect()
	if err != nil {
		return false, fmt.Sprintf("failed to list folders: %v", err)
	}
	if len(mailboxes) == 0 {
		return true, fmt.Sprintf("warning: drafts folder %q not found", d.cfg.DraftsFolder)
	}
	return true, ""
}

func (d *Drafts) connect() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	var client *imapclient.Client
	var err error
	if d.cfg.UseSSL {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP %s: %w", addr, err)
	}

	if err := client.Login(d.cfg.Username, d.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP authentication failed for %s: %w", d.cfg.Username, err)
	}

	return client, nil
}
