package view

import "github.com/formalis/backoffice/internal/domain"

// MobileBreakpoint is the viewport width (px) below which the single-pane
// stack replaces the split-pane grid.
const MobileBreakpoint = 768

type Layout int

const (
	LayoutDesktop Layout = iota
	LayoutMobile
)

// LayoutFor picks the layout from the viewport width at mount/resize time.
// Not user-toggleable.
func LayoutFor(width int) Layout {
	if width < MobileBreakpoint {
		return LayoutMobile
	}
	return LayoutDesktop
}

// ShowConversationList reports whether the side list pane is rendered. Only
// the admin view carries a conversation list.
func ShowConversationList(mode domain.ViewMode) bool {
	return mode == domain.ViewAdmin
}

// MobileView names the two panes of the mobile stack.
type MobileView int

const (
	MobileList MobileView = iota
	MobileChat
)

// SlideDirection is the edge a pane enters from. The list and chat panes
// enter from opposite edges to keep the push-forward / pop-back feel.
type SlideDirection int

const (
	SlideFromLeft SlideDirection = iota
	SlideFromRight
)

func (v MobileView) EnterFrom() SlideDirection {
	if v == MobileChat {
		return SlideFromRight
	}
	return SlideFromLeft
}

// MobileNav is the two-view navigation stack of the mobile layout.
type MobileNav struct {
	active MobileView
}

func (n *MobileNav) Active() MobileView { return n.active }

// OpenChat transitions list → chat when a conversation is selected.
func (n *MobileNav) OpenChat() { n.active = MobileChat }

// Back returns to the list without dropping the selected conversation;
// re-entering the chat shows the same one.
func (n *MobileNav) Back() { n.active = MobileList }
