package view

import "strings"

const (
	composerMaxRows = 6
	composerCols    = 48
)

// Composer is the draft state of the message input: a multi-line buffer that
// submits on plain Enter, grows to a capped height, and takes emoji appended
// to the end of the draft.
type Composer struct {
	draft   string
	sending bool
}

func (c *Composer) Draft() string { return c.draft }

func (c *Composer) SetDraft(s string) { c.draft = s }

// SetSending flips the in-flight flag; submission is disabled while set.
func (c *Composer) SetSending(v bool) { c.sending = v }

// CanSubmit is false while a send is in flight or the draft is blank.
func (c *Composer) CanSubmit() bool {
	return !c.sending && strings.TrimSpace(c.draft) != ""
}

// Keystroke handles the Enter key. Plain Enter submits; Shift+Enter inserts
// a newline instead. Returns the content to send and whether to submit.
func (c *Composer) Keystroke(enter, shift bool) (content string, submit bool) {
	if !enter {
		return "", false
	}
	if shift {
		c.draft += "\n"
		return "", false
	}
	return c.Submit()
}

// Submit returns the trimmed draft and clears it. A blank or in-flight
// composer refuses and keeps the draft untouched.
func (c *Composer) Submit() (content string, ok bool) {
	if !c.CanSubmit() {
		return "", false
	}
	content = strings.TrimSpace(c.draft)
	c.draft = ""
	return content, true
}

// InsertEmoji appends the glyph at the end of the current draft. Append-only
// on purpose; not cursor-position-aware.
func (c *Composer) InsertEmoji(glyph string) {
	c.draft += glyph
}

// Rows is the height hint for the input, grown with content up to a cap.
func (c *Composer) Rows() int {
	rows := 0
	for _, line := range strings.Split(c.draft, "\n") {
		rows += 1 + len(line)/composerCols
	}
	if rows > composerMaxRows {
		return composerMaxRows
	}
	return rows
}
