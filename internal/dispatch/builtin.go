package dispatch

import (
	"time"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/loop"
)

// Trigger classes handled by the core itself.
const (
	ClassToggle = "btn-toggle"
	ClassClose  = "close"
)

// FadeTime is how long a class-driven fade takes.
const FadeTime = 150 * time.Millisecond

// RegisterDefaults installs the toggle and alert-dismiss handlers.
func RegisterDefaults(d *Dispatcher, doc *dom.Document, clock loop.Clock) {
	d.Register(ClassToggle, ToggleItem(doc, d.logger))
	d.Register(ClassClose, CloseAlert(clock))
}

// ToggleItem flips the "toggled" class on the trigger (or its parent when the
// trigger has no data-toggle-class) and flips data-toggle-class on the
// element selected by data-target.
func ToggleItem(doc *dom.Document, logger *zap.Logger) HandlerFunc {
	return func(ev *dom.Event) {
		targ := ev.Target
		if !targ.HasAttr("data-toggle-class") {
			targ = targ.Parent()
		}
		toggleClass := targ.Attr("data-toggle-class")
		sel := targ.Attr("data-target")
		if sel == "" {
			return
		}
		if _, err := dom.Compile(sel); err != nil {
			logger.Warn("bad toggle target", zap.String("selector", sel), zap.Error(err))
			return
		}

		targ.ToggleClass("toggled")
		if toggleClass != "" {
			doc.One(sel).ToggleClass(toggleClass)
		}
	}
}

// CloseAlert fades out the ancestor named by the trigger's data-dismiss
// attribute and hides it once the fade is over.
func CloseAlert(clock loop.Clock) HandlerFunc {
	return func(ev *dom.Event) {
		dismiss := ev.Target.Attr("data-dismiss")
		if dismiss == "" {
			return
		}
		if _, err := dom.Compile("." + dismiss); err != nil {
			return
		}
		parent := ev.Target.Ancestor("." + dismiss)
		if parent == nil {
			return
		}
		parent.RemoveClass("in")
		parent.AddClass("fade")
		clock.AfterFunc(FadeTime, func() {
			parent.ReplaceClass("fade", "hide")
		})
	}
}
