// Package dialog manages the page's single modal dialog and the screen mask
// behind it.
package dialog

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/pagectx"
)

// Element ids the context strings must provide.
const (
	ContainerID = "dialog-container"
	MaskID      = "screen-mask"
)

// Manager owns the dialog container and the mask. The markup for both comes
// from context strings and is appended to the body on first use.
type Manager struct {
	doc       *dom.Document
	store     *pagectx.Store
	bus       *events.Bus
	clock     loop.Clock
	presenter Presenter
	logger    *zap.Logger

	container *dom.Node
	mask      *dom.Node
	open      bool
	// gen is bumped by every Show and Hide; a pending hide only completes
	// when nothing happened since it started.
	gen  uint64
	offs []func()
}

// New creates a Manager. No markup is touched until the first Show or Mask.
func New(doc *dom.Document, store *pagectx.Store, bus *events.Bus, clock loop.Clock, p Presenter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = ClassPresenter{}
	}
	return &Manager{
		doc:       doc,
		store:     store,
		bus:       bus,
		clock:     clock,
		presenter: p,
		logger:    logger.Named("dialog"),
	}
}

// Create builds the dialog container if it does not exist yet and reports
// whether one is available.
func (m *Manager) Create() bool {
	if m.container != nil {
		return true
	}
	markup := m.store.String(pagectx.StringDialog)
	if markup == "" {
		m.logger.Warn("no dialog markup in page context")
		return false
	}
	if !fragmentHas(markup, "#"+ContainerID+" .bd") {
		m.logger.Warn("dialog markup lacks #" + ContainerID + " .bd")
		return false
	}
	if err := m.doc.Body().Append(markup); err != nil {
		m.logger.Warn("appending dialog markup", zap.Error(err))
		return false
	}
	c := m.doc.ByID(ContainerID)
	if c == nil {
		return false
	}
	m.container = c
	if closer := c.One(".hd .close"); closer != nil {
		m.offs = append(m.offs, closer.On("click", m.onClose))
	}
	return true
}

func (m *Manager) onClose(ev *dom.Event) {
	ev.PreventDefault()
	ev.StopPropagation()
	m.Hide()
}

// Container returns the dialog element, or nil before Create.
func (m *Manager) Container() *dom.Node { return m.container }

// IsOpen reports whether the dialog is showing.
func (m *Manager) IsOpen() bool { return m.open }

// Show places content in the dialog body and displays it. A modal dialog
// also covers the page with the mask.
func (m *Manager) Show(content string, modal bool) {
	if !m.Create() {
		return
	}
	if modal {
		m.Mask()
	}
	if err := m.container.One(".bd").SetContent(content); err != nil {
		m.logger.Warn("setting dialog content", zap.Error(err))
	}
	m.gen++
	m.presenter.Show(m.container)
	m.open = true
}

// Hide fades the dialog out, removes the mask and announces the close. The
// hidden class lands once the fade has run.
func (m *Manager) Hide() {
	if m.container == nil {
		return
	}
	m.gen++
	gen := m.gen
	c := m.container
	m.presenter.BeginHide(c)
	m.clock.AfterFunc(m.presenter.HideDuration(), func() {
		if m.gen != gen {
			return
		}
		m.presenter.FinishHide(c)
	})
	m.open = false
	m.Unmask()
	m.bus.Notify(events.HideDialog, nil)
}

// AddClass adds cls to the dialog container.
func (m *Manager) AddClass(cls string) {
	m.container.AddClass(cls)
}

// Resize sets the dialog size in pixels and centers it. Zero leaves a
// dimension unchanged.
func (m *Manager) Resize(w, h int) {
	if m.container == nil {
		return
	}
	if w > 0 {
		m.container.SetStyle("width", px(w))
	}
	if h > 0 {
		m.container.SetStyle("height", px(h))
	}
	if cw := pixels(m.container.Style("width")); cw > 0 {
		m.container.SetStyle("margin-left", px(-cw/2))
	}
	if ch := pixels(m.container.Style("height")); ch > 0 {
		m.container.SetStyle("margin-top", px(-ch/2))
	}
}

// Mask covers the whole document. Its height follows the document height
// each time it is shown.
func (m *Manager) Mask() {
	if m.mask == nil {
		markup := m.store.String(pagectx.StringMask)
		if markup == "" {
			m.logger.Warn("no mask markup in page context")
			return
		}
		if !fragmentHas(markup, "#"+MaskID) {
			m.logger.Warn("mask markup lacks #" + MaskID)
			return
		}
		if err := m.doc.Body().Append(markup); err != nil {
			m.logger.Warn("appending mask markup", zap.Error(err))
			return
		}
		m.mask = m.doc.ByID(MaskID)
		if m.mask == nil {
			return
		}
		m.offs = append(m.offs, m.mask.On("click", func(*dom.Event) { m.Hide() }))
	}
	m.mask.SetStyle("width", "100%")
	m.mask.SetStyle("height", px(m.doc.Height()))
	m.mask.SetStyle("display", "block")
}

// Unmask hides the mask if it exists.
func (m *Manager) Unmask() {
	if m.mask != nil {
		m.mask.SetStyle("display", "none")
	}
}

// Masked reports whether the mask is displayed.
func (m *Manager) Masked() bool {
	return m.mask != nil && m.mask.Style("display") == "block"
}

// Teardown detaches the close and mask listeners.
func (m *Manager) Teardown() {
	for _, off := range m.offs {
		off()
	}
	m.offs = nil
	m.gen++
}

func px(n int) string { return strconv.Itoa(n) + "px" }

func pixels(s string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	return n
}

// fragmentHas parses markup on its own and reports whether sel matches in it,
// so unusable markup never reaches the page.
func fragmentHas(markup, sel string) bool {
	frag, err := dom.ParseString("<html><body>" + markup + "</body></html>")
	if err != nil {
		return false
	}
	return frag.Body().One(sel) != nil
}
