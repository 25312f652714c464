package tui

import (
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
)

// feedChangedMsg reports a scroll controller transition
type feedChangedMsg struct {
	State scroll.State
}

// mediaChangedMsg reports a lazy loader transition for one post
type mediaChangedMsg struct {
	PostID string
	State  media.State
}
