// Package social defers the footer's social widget scripts until after the
// page has loaded.
package social

import (
	"github.com/tailorshop/storefront/internal/page"
)

// FooterID is the element whose presence turns the widgets on.
const FooterID = "social-footer-con"

// DefaultScripts are the widget scripts loaded when none are configured.
var DefaultScripts = []string{
	"//connect.facebook.net/en_US/all.js#xfbml=1",
	"//platform.twitter.com/widgets.js",
	"//apis.google.com/js/plusone.js",
}

type Feature struct {
	scripts []string
}

// New creates the feature. An empty list means DefaultScripts.
func New(scripts []string) *Feature {
	if len(scripts) == 0 {
		scripts = DefaultScripts
	}
	return &Feature{scripts: scripts}
}

func (f *Feature) Name() string { return "social" }

func (f *Feature) Init(p *page.Page) error {
	if p.Document().ByID(FooterID) == nil {
		return nil
	}
	for _, src := range f.scripts {
		p.Scripts().Enqueue(src, nil)
	}
	return nil
}

func (f *Feature) Destruct() {}
