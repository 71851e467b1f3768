package dialog

import (
	"fmt"
	"time"

	"github.com/tailorshop/storefront/internal/dom"
)

// Presentation variants.
const (
	VariantClass      = "class"
	VariantTransition = "transition"
)

// Presenter draws the dialog container appearing and disappearing. The
// Manager owns timing: it calls FinishHide once HideDuration has elapsed.
type Presenter interface {
	Show(container *dom.Node)
	BeginHide(container *dom.Node)
	FinishHide(container *dom.Node)
	HideDuration() time.Duration
}

// NewPresenter returns the presenter for a configured variant name.
func NewPresenter(variant string) (Presenter, error) {
	switch variant {
	case "", VariantClass:
		return ClassPresenter{}, nil
	case VariantTransition:
		return TransitionPresenter{}, nil
	default:
		return nil, fmt.Errorf("unknown dialog presentation %q", variant)
	}
}

// ClassPresenter drives visibility through class names only.
type ClassPresenter struct{}

func (ClassPresenter) Show(c *dom.Node) { c.SetClassName("modal fade in") }

func (ClassPresenter) BeginHide(c *dom.Node) {
	c.RemoveClass("in")
	c.AddClass("fade")
}

func (ClassPresenter) FinishHide(c *dom.Node) { c.SetClassName("modal hide") }

func (ClassPresenter) HideDuration() time.Duration { return 150 * time.Millisecond }

// TransitionPresenter animates inline opacity.
type TransitionPresenter struct{}

func (TransitionPresenter) Show(c *dom.Node) {
	c.SetClassName("modal")
	c.SetStyle("transition", "opacity 0.2s")
	c.SetStyle("opacity", "1")
}

func (TransitionPresenter) BeginHide(c *dom.Node) { c.SetStyle("opacity", "0") }

func (TransitionPresenter) FinishHide(c *dom.Node) { c.SetClassName("modal hide") }

func (TransitionPresenter) HideDuration() time.Duration { return 200 * time.Millisecond }
