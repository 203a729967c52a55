/*******************************************************************************
 * Copyright (c) 2026 The Francis Crick Institute.
 *
 * Authors:
 *	- Chris Cheshire <chris.cheshire@crick.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package slack posts pipeline events to a Slack incoming webhook using
// Block Kit payloads.

package slack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoWebhook = Error("no webhook URL configured")
	ErrRejected  = Error("webhook rejected the message")

	requestTimeout = 10 * time.Second
	contentType    = "application/json"
	maxCodeChars   = 2500
)

// Level categorises an event for icon and label selection in posted
// messages.
type Level int

const (
	LevelSuccess Level = iota
	LevelFailure
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// String returns the upper-case label shown in messages for this level.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "SUCCESS"
	case LevelFailure:
		return "FAILURE"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	}

	return "INFO"
}

func (l Level) icon() string {
	switch l {
	case LevelSuccess:
		return "✅"
	case LevelFailure:
		return "❌"
	case LevelWarning:
		return "⚠️"
	case LevelError:
		return "🛑"
	case LevelCritical:
		return "🚨"
	}

	return "ℹ️"
}

// Text is the text element of a Block.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block is a single element of a Block Kit payload.
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

// Header returns a header block. Slack rejects markdown in headers, so
// asterisks are stripped.
func Header(text string) Block {
	return Block{
		Type: "header",
		Text: &Text{Type: "plain_text", Text: strings.ReplaceAll(text, "*", "")},
	}
}

// Divider returns a divider block.
func Divider() Block {
	return Block{Type: "divider"}
}

// Section returns a section block with markdown text.
func Section(text string) Block {
	return Block{
		Type: "section",
		Text: &Text{Type: "mrkdwn", Text: text},
	}
}

// Context returns a context block with the given markdown elements.
func Context(elements ...string) Block {
	texts := make([]Text, len(elements))
	for i, element := range elements {
		texts[i] = Text{Type: "mrkdwn", Text: element}
	}

	return Block{Type: "context", Elements: texts}
}

// CodeBlock returns a section block that renders text as fenced code,
// keeping only the end of output too long for one Slack message.
func CodeBlock(text string) Block {
	if text == "" {
		return Section("`<no output>`")
	}

	const prefix = "... (truncated)\n"

	if len(text) > maxCodeChars {
		text = prefix + text[len(text)-(maxCodeChars-len(prefix)):]
	}

	return Section("```" + text + "```")
}

// AlertText prefixes text with the icon and label for the given level.
func AlertText(level Level, text string) string {
	return fmt.Sprintf("%s *%s*: %s", level.icon(), level, text)
}

type message struct {
	Blocks []Block `json:"blocks"`
}

// Notifier posts block-formatted messages to a Slack incoming webhook.
type Notifier struct {
	url    string
	client *http.Client
}

// New returns a Notifier that will post to the given webhook URL. An empty
// URL gives a Notifier whose posts fail with ErrNoWebhook, which lets
// callers treat notification as optional.
func New(webhookURL string) *Notifier {
	return &Notifier{
		url:    webhookURL,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Notify posts text as a single section block, labelled per the given
// level.
func (n *Notifier) Notify(level Level, text string) error {
	return n.Post(Section(AlertText(level, text)))
}

// Post sends the given blocks as one webhook message.
func (n *Notifier) Post(blocks ...Block) error {
	if n.url == "" {
		return ErrNoWebhook
	}

	payload, err := json.Marshal(message{Blocks: blocks})
	if err != nil {
		return err
	}

	resp, err := n.client.Post(n.url, contentType, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	}

	return nil
}
