// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"
)

// SMTPMailer sends build emails through a plain smtp relay.
type SMTPMailer struct {
	log  zerolog.Logger
	addr string
	from string

	// auth is nil when the relay doesn't require authentication.
	auth smtp.Auth
}

type SMTPOpts struct {
	Addr     string
	From     string
	Username string
	Password string
}

func NewSMTPMailer(log zerolog.Logger, opts SMTPOpts) *SMTPMailer {
	var auth smtp.Auth
	if opts.Username != "" {
		host := opts.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", opts.Username, opts.Password, host)
	}

	return &SMTPMailer{log: log, addr: opts.Addr, from: opts.From, auth: auth}
}

// envelopeRecipient extracts the bare address for the smtp envelope from a
// recipient that may carry a display name. Passing the display name form to
// RCPT TO is rejected by compliant relays.
func envelopeRecipient(recipient string) (string, error) {
	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return "", errors.Wrapf(err, "invalid recipient address %q", recipient)
	}

	return addr.Address, nil
}

func (m *SMTPMailer) OnBuildFailure(ctx context.Context, recipient string, data BuildFailureData) error {
	envRecipient, err := envelopeRecipient(recipient)
	if err != nil {
		return errors.WithStack(err)
	}

	subject := fmt.Sprintf("Build #%d failed for update set %q", data.Sequence, data.SourceUpdateSetName)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Build #%d for update set %q did not pass.\r\n\r\n", data.Sequence, data.SourceUpdateSetName)
	fmt.Fprintf(&b, "Update set: %s\r\n", data.SourceUpdateSetURL)
	fmt.Fprintf(&b, "Build results: %s\r\n", data.DocURL)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{envRecipient}, []byte(b.String())); err != nil {
		return errors.Wrapf(err, "failed to send build failure email to %q", recipient)
	}

	return nil
}
