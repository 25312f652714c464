package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
)

// events forwards controller and loader callbacks into the Bubble Tea loop.
// Callbacks fire on load goroutines and from inside Update (viewport
// recomputes), so sends never block.
//
// Feed changes coalesce into a single pending slot: a pending feedChangedMsg
// already makes Update re-read the pager, so a second one adds nothing, but
// losing the last one would leave new rows unsynced. Media changes only
// prompt a redraw and are dropped when the buffer is full.
type events struct {
	feed  chan tea.Msg
	media chan tea.Msg
}

func newEvents() events {
	return events{
		feed:  make(chan tea.Msg, 1),
		media: make(chan tea.Msg, 64),
	}
}

func send(ch chan tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

func (e events) onFeed(s scroll.State) {
	send(e.feed, feedChangedMsg{State: s})
}

func (e events) onMedia(postID string) func(media.State) {
	return func(s media.State) {
		send(e.media, mediaChangedMsg{PostID: postID, State: s})
	}
}

// wait returns a command that delivers the next event, feed changes first
func (e events) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.feed:
			return msg
		default:
		}
		select {
		case msg := <-e.feed:
			return msg
		case msg := <-e.media:
			return msg
		}
	}
}
