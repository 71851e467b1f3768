package dialog

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/pagectx"
)

const (
	dialogMarkup = `<div id="dialog-container" class="modal hide"><div class="hd"><a class="close" href="#">x</a></div><div class="bd"></div></div>`
	maskMarkup   = `<div id="screen-mask" style="display: none"></div>`
)

type fixture struct {
	doc   *dom.Document
	bus   *events.Bus
	clock *loop.ManualClock
	m     *Manager
}

func newFixture(t *testing.T, p Presenter, strs map[string]string) *fixture {
	t.Helper()
	doc := dom.MustParse(`<html><body><p>page</p></body></html>`)
	doc.SetHeight(1800)
	bus := events.NewBus(zaptest.NewLogger(t))
	clock := loop.NewManualClock()
	store := pagectx.NewStore(pagectx.Bundle{Strings: strs})
	return &fixture{
		doc:   doc,
		bus:   bus,
		clock: clock,
		m:     New(doc, store, bus, clock, p, zaptest.NewLogger(t)),
	}
}

func defaultStrings() map[string]string {
	return map[string]string{pagectx.StringDialog: dialogMarkup, pagectx.StringMask: maskMarkup}
}

func TestShowModal(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())

	f.m.Show("<p>Saved</p>", true)
	c := f.m.Container()
	if c == nil {
		t.Fatal("dialog not created")
	}
	if c.ClassName() != "modal fade in" {
		t.Errorf("class = %q", c.ClassName())
	}
	if got := c.One(".bd").InnerHTML(); got != "<p>Saved</p>" {
		t.Errorf("body = %q", got)
	}
	mask := f.doc.ByID(MaskID)
	if mask.Style("display") != "block" || mask.Style("height") != "1800px" || mask.Style("width") != "100%" {
		t.Errorf("mask style = %q", mask.Attr("style"))
	}
	if !f.m.IsOpen() {
		t.Error("expected open")
	}
}

func TestShowWithoutModalLeavesMask(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())
	f.m.Show("<p>hi</p>", false)
	if f.doc.ByID(MaskID) != nil {
		t.Error("non-modal show must not create the mask")
	}
}

func TestHideWaitsForFade(t *testing.T) {
	for _, p := range []Presenter{ClassPresenter{}, TransitionPresenter{}} {
		f := newFixture(t, p, defaultStrings())
		hides := 0
		f.bus.Subscribe(events.HideDialog, func(any) { hides++ })

		f.m.Show("<p>x</p>", true)
		f.m.Hide()
		c := f.m.Container()
		if c.HasClass("hide") {
			t.Fatalf("%T: hidden class applied before the fade", p)
		}
		if f.m.Masked() {
			t.Errorf("%T: mask still displayed", p)
		}
		if hides != 1 {
			t.Errorf("%T: hide notifications = %d", p, hides)
		}
		f.clock.Advance(p.HideDuration() - 1)
		if c.HasClass("hide") {
			t.Fatalf("%T: hidden too early", p)
		}
		f.clock.Advance(1)
		if c.ClassName() != "modal hide" {
			t.Errorf("%T: class after fade = %q", p, c.ClassName())
		}
	}
}

func TestShowCancelsPendingHide(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())
	f.m.Show("<p>first</p>", true)
	f.m.Hide()
	f.clock.Advance(50 * time.Millisecond)
	f.m.Show("<p>second</p>", true)
	f.clock.Advance(ClassPresenter{}.HideDuration())
	if f.m.Container().HasClass("hide") {
		t.Fatal("stale hide closed a freshly shown dialog")
	}
	if !f.m.IsOpen() {
		t.Error("expected open")
	}
}

func TestHideBeforeCreateIsNoop(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())
	hides := 0
	f.bus.Subscribe(events.HideDialog, func(any) { hides++ })
	f.m.Hide()
	if hides != 0 || f.clock.Pending() != 0 {
		t.Errorf("hides=%d pending=%d", hides, f.clock.Pending())
	}
}

func TestCloseControlAndMaskClickHide(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())
	f.m.Show("<p>x</p>", true)
	f.doc.Dispatch(dom.NewEvent("click", f.m.Container().One(".hd .close")))
	if f.m.IsOpen() {
		t.Fatal("close control did not hide")
	}

	f.m.Show("<p>x</p>", true)
	f.doc.Dispatch(dom.NewEvent("click", f.doc.ByID(MaskID)))
	if f.m.IsOpen() {
		t.Fatal("mask click did not hide")
	}
}

func TestMissingMarkup(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, nil)
	f.m.Show("<p>x</p>", true)
	if f.m.Container() != nil || f.m.IsOpen() {
		t.Error("show without markup should be a no-op")
	}
	f.m.AddClass("error")
	f.m.Resize(400, 200)
}

func TestIncompleteMarkupLeavesPageAlone(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, map[string]string{
		pagectx.StringDialog: `<div id="dialog-container" class="modal hide"><div class="hd"></div></div>`,
		pagectx.StringMask:   `<div class="screen-mask"></div>`,
	})
	for i := 0; i < 3; i++ {
		f.m.Show("<p>x</p>", true)
	}
	if f.m.Container() != nil || f.m.IsOpen() {
		t.Error("dialog without a body must not show")
	}
	f.m.Mask()
	if n := len(f.doc.All("#dialog-container")); n != 0 {
		t.Errorf("stray dialog containers = %d", n)
	}
	if n := len(f.doc.All(".screen-mask")); n != 0 {
		t.Errorf("stray masks = %d", n)
	}
}

func TestResizeCenters(t *testing.T) {
	f := newFixture(t, ClassPresenter{}, defaultStrings())
	f.m.Show("<p>x</p>", false)
	f.m.Resize(400, 300)
	c := f.m.Container()
	if c.Style("width") != "400px" || c.Style("margin-left") != "-200px" || c.Style("margin-top") != "-150px" {
		t.Errorf("style = %q", c.Attr("style"))
	}
}

func TestNewPresenter(t *testing.T) {
	if _, err := NewPresenter("transition"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPresenter("sparkle"); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}
