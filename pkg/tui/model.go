// Package tui is the interactive feed reader. Posts are laid out as fixed
// height rows over a visibility.Viewport; scrolling the terminal window moves
// the viewport, which drives the infinite scroll sentinel and each post's
// lazy waveform preview.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/formatter"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
	"github.com/zfogg/sidechain/reader/pkg/service"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
	"golang.org/x/term"
)

// ItemHeight is the number of rows each post occupies
const ItemHeight = 4

// Options configures the reader
type Options struct {
	Pager       *service.FeedPager
	Fetcher     media.Fetcher
	Scroll      scroll.Options
	MediaMargin string
	Cell        visibility.CellSize
	Metrics     *metrics.Collector
}

type item struct {
	post    api.Post
	box     *visibility.Box
	preview *visibility.Box
	// loader is nil for posts without a preview
	loader *media.Loader
}

// Model is the Bubble Tea model for the feed reader
type Model struct {
	ctx      context.Context
	opts     Options
	pager    *service.FeedPager
	viewport *visibility.Viewport
	detector *visibility.Detector
	ctl      *scroll.Controller
	events   events

	items  *[]*item
	cursor int

	Width  int
	Height int

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
}

// New creates the reader model. Nothing is fetched until Init.
func New(ctx context.Context, opts Options) Model {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		width, height = 80, 24
	}

	ev := newEvents()
	viewport := visibility.NewViewport(width, height, opts.Cell)
	detector := visibility.NewDetector(viewport, visibility.WithMetrics(opts.Metrics))

	scrollOpts := opts.Scroll
	scrollOpts.OnChange = ev.onFeed
	scrollOpts.Metrics = opts.Metrics

	m := Model{
		ctx:      ctx,
		opts:     opts,
		pager:    opts.Pager,
		viewport: viewport,
		detector: detector,
		ctl:      scroll.New(ctx, detector, opts.Pager.LoadFresh, scrollOpts),
		events:   ev,
		items:    new([]*item),
		Width:    width,
		Height:   height,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
	}
	m.viewport.Resize(width, m.bodyHeight())
	return m
}

// Init requests the first page
func (m Model) Init() tea.Cmd {
	m.ctl.Retry()
	return tea.Batch(m.spinner.Tick, m.events.wait())
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		m.viewport.Resize(m.Width, m.bodyHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case feedChangedMsg:
		m.sync()
		return m, m.events.wait()

	case mediaChangedMsg:
		return m, m.events.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.pageItems())
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.pageItems())
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.cursor)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(*m.items) - 1 - m.cursor)
	case key.Matches(msg, m.keys.Retry):
		m.retry()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.viewport.Resize(m.Width, m.bodyHeight())
	}
	return m, nil
}

// sync adds rows for newly loaded posts and moves the sentinel to the last one
func (m *Model) sync() {
	posts := m.pager.Posts()
	items := *m.items
	if len(posts) == len(items) {
		return
	}

	start := len(items)
	for _, post := range posts[start:] {
		it := &item{
			post:    post,
			box:     visibility.NewBox(visibility.Rect{}),
			preview: visibility.NewBox(visibility.Rect{}),
		}
		if src := post.MediaURL(); src != "" {
			it.loader = media.NewLoader(m.ctx, src, m.detector, m.opts.Fetcher, media.LoaderOptions{
				RootMargin: m.opts.MediaMargin,
				OnChange:   m.events.onMedia(post.ID),
				Metrics:    m.opts.Metrics,
			})
		}
		items = append(items, it)
	}
	*m.items = items
	m.layout()

	for _, it := range items[start:] {
		if it.loader != nil {
			it.loader.Attach(it.preview)
		}
	}
	m.ctl.Attach(items[len(items)-1].box)

	logger.Debug("Feed rows added", "added", len(items)-start, "total", len(items))
}

// layout assigns content coordinates to every row
func (m *Model) layout() {
	for i, it := range *m.items {
		y := i * ItemHeight
		it.box.SetBounds(visibility.Rect{X: 0, Y: y, W: m.Width, H: ItemHeight})
		it.preview.SetBounds(visibility.Rect{X: 2, Y: y + 2, W: max(m.Width-2, 1), H: 1})
	}
	m.viewport.Refresh()
}

func (m *Model) moveCursor(delta int) {
	n := len(*m.items)
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)

	top := m.viewport.Top()
	rowTop := m.cursor * ItemHeight
	rowBottom := rowTop + ItemHeight
	bh := m.bodyHeight()
	switch {
	case rowTop < top:
		top = rowTop
	case rowBottom > top+bh:
		top = rowBottom - bh
	}
	m.viewport.ScrollTo(top)
}

// retry reloads a failed page, or asks for the next one when the feed has
// more but the sentinel is not moving, then retries the selected preview
func (m *Model) retry() {
	if st := m.ctl.State(); st.Err != nil || (!st.Loading && st.HasMore) {
		m.ctl.Retry()
	}
	if items := *m.items; m.cursor < len(items) && items[m.cursor].loader != nil {
		items[m.cursor].loader.Retry()
	}
}

func (m Model) pageItems() int {
	return max(m.bodyHeight()/ItemHeight, 1)
}

func (m Model) bodyHeight() int {
	chrome := 2 + lipgloss.Height(m.help.View(m.keys))
	return max(m.Height-chrome, 1)
}

// Close releases every watcher. Running loads finish in the background.
func (m Model) Close() {
	m.ctl.Close()
	for _, it := range *m.items {
		if it.loader != nil {
			it.loader.Close()
		}
	}
}

// Wait blocks until no page load or preview download is running
func (m Model) Wait() {
	m.ctl.Wait()
	for _, it := range *m.items {
		if it.loader != nil {
			it.loader.Wait()
		}
	}
}

// View renders the reader
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Sidechain · " + m.pager.FeedType()))
	b.WriteString("\n")

	bh := m.bodyHeight()
	lines := m.bodyLines(bh)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) bodyLines(bh int) []string {
	items := *m.items
	top := m.viewport.Top()
	first := top / ItemHeight

	var lines []string
	for i := first; i < len(items) && len(lines) < bh+ItemHeight; i++ {
		lines = append(lines, m.renderItem(i)...)
	}
	if offset := top - first*ItemHeight; offset < len(lines) {
		lines = lines[offset:]
	} else {
		lines = nil
	}

	clip := lipgloss.NewStyle().MaxWidth(m.Width)
	for i := range lines {
		lines[i] = clip.Render(lines[i])
	}

	if len(lines) > bh {
		lines = lines[:bh]
	}
	for len(lines) < bh {
		lines = append(lines, "")
	}
	return lines
}

func (m Model) renderItem(i int) []string {
	it := (*m.items)[i]

	cursor := " "
	title := TitleStyle.Render(formatter.Byline(it.post))
	if i == m.cursor {
		cursor = SelectedTitleStyle.Render(Cursor)
		title = SelectedTitleStyle.Render(formatter.Byline(it.post))
	}

	return []string{
		cursor + " " + title,
		"  " + SubtitleStyle.Render(formatter.Stats(it.post)),
		"  " + m.renderPreview(it),
		"",
	}
}

func (m Model) renderPreview(it *item) string {
	if it.loader == nil {
		return DimStyle.Render("no preview")
	}

	st := it.loader.State()
	switch {
	case !st.InView:
		return DimStyle.Render("░░░░░░░░ waveform")
	case st.Failed:
		return ErrorStyle.Render("✗ preview failed, press r to retry")
	case st.Retrying:
		return m.spinner.View() + DimStyle.Render(" retrying")
	case st.Loading:
		return m.spinner.View() + DimStyle.Render(" loading waveform")
	default:
		return SuccessStyle.Render("▁▃▅▇▅▃▁ ") + DimStyle.Render(formatter.Preview(st))
	}
}

func (m Model) statusLine() string {
	st := m.ctl.State()
	n := len(*m.items)

	switch {
	case st.Loading:
		return m.spinner.View() + DimStyle.Render(fmt.Sprintf(" Loading page %d", st.Pages+1))
	case st.Err != nil:
		return ErrorStyle.Render(st.Err.Error()) + DimStyle.Render(" · press r to retry")
	case !st.HasMore:
		return DimStyle.Render(fmt.Sprintf("End of feed · %d posts", n))
	default:
		return DimStyle.Render(fmt.Sprintf("%d posts · scroll or press r for more", n))
	}
}

// Run starts the reader and blocks until it exits
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
