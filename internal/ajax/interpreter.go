package ajax

import (
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/envelope"
	"github.com/tailorshop/storefront/internal/events"
	"github.com/tailorshop/storefront/internal/loop"
	"github.com/tailorshop/storefront/internal/pagectx"
)

// AlertFadeDelay is how long an alert box stays transparent before it fades in.
const AlertFadeDelay = 100 * time.Millisecond

// Navigator is implemented by the host to leave or reload the page.
type Navigator interface {
	Navigate(uri string)
	Reload()
}

// Dialogs is the part of the dialog manager the interpreter drives.
type Dialogs interface {
	Show(content string, modal bool)
	AddClass(cls string)
}

// Completion is the payload of the submission-complete notification.
type Completion struct {
	Response Response
	Envelope *envelope.Envelope
	Form     *dom.Node
}

// Interpreter routes a reply to the densest presentation the page offers:
// an inline field error, an alert box in the form, or the modal dialog.
type Interpreter struct {
	dialogs Dialogs
	store   *pagectx.Store
	bus     *events.Bus
	nav     Navigator
	clock   loop.Clock
	policy  *bluemonday.Policy
	logger  *zap.Logger
}

// NewInterpreter wires an Interpreter.
func NewInterpreter(dialogs Dialogs, store *pagectx.Store, bus *events.Bus, nav Navigator, clock loop.Clock, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		dialogs: dialogs,
		store:   store,
		bus:     bus,
		nav:     nav,
		clock:   clock,
		policy:  bluemonday.UGCPolicy(),
		logger:  logger.Named("interpreter"),
	}
}

// Interpret acts on resp. requestor is the element that triggered the
// request, usually a submit button or the form itself, and may be nil.
func (in *Interpreter) Interpret(resp Response, requestor *dom.Node) {
	env, ok := in.decode(resp)
	switch {
	case !ok:
		in.showFailure(requestor)
	case env == nil:
	case env.Method == envelope.MethodDialog:
		in.showDialogEnvelope(env, requestor)
	case env.Method == envelope.MethodRedirect:
		in.nav.Navigate(env.URI)
	case env.Method == envelope.MethodRefresh:
		in.nav.Reload()
	default:
		in.showAlertSuccess(requestor, "", false)
	}

	in.complete(resp, env, requestor)
}

// decode reports false when the reply must be treated as a failure.
func (in *Interpreter) decode(resp Response) (*envelope.Envelope, bool) {
	if !resp.OK() {
		return nil, false
	}
	env, err := envelope.Parse(resp.Body)
	if err != nil {
		if errors.Is(err, envelope.ErrMalformed) {
			in.logger.Warn("unreadable reply", zap.String("url", resp.Request.URL), zap.Error(err))
		}
		return nil, false
	}
	return env, true
}

func (in *Interpreter) showFailure(requestor *dom.Node) {
	if closest(requestor, ".form-simplified") != nil && in.showInlineError(requestor) {
		return
	}
	if in.showAlertError(requestor, "") {
		return
	}
	in.dialogs.Show(in.store.String(pagectx.StringError), true)
}

func (in *Interpreter) showDialogEnvelope(env *envelope.Envelope, requestor *dom.Node) {
	text := in.policy.Sanitize(env.DialogText)
	if env.IsError() {
		if in.showInlineError(requestor) || in.showAlertError(requestor, text) {
			return
		}
		in.dialogs.Show("<p>"+text+"</p>", true)
		in.dialogs.AddClass("error")
		return
	}
	if in.showAlertSuccess(requestor, text, true) {
		return
	}
	in.dialogs.Show("<p>"+text+"</p>", true)
}

func (in *Interpreter) showInlineError(requestor *dom.Node) bool {
	group := requestor.Ancestor(".control-group")
	if group == nil || group.One(".help") == nil {
		return false
	}
	group.AddClass("error")
	return true
}

// showAlertError reveals the form's error box. An empty msg keeps the text
// the page rendered into it.
func (in *Interpreter) showAlertError(requestor *dom.Node, msg string) bool {
	form := closest(requestor, ".form-horizontal")
	box := form.One(".alert-error")
	if box == nil {
		return false
	}
	hideAlerts(form)
	if msg != "" {
		in.setText(box, msg)
	}
	box.RemoveClass("hide")
	box.RemoveClass("fade")
	box.RemoveClass("in")
	box.AddClass("transparent")
	in.fadeIn(box)
	return true
}

func (in *Interpreter) showAlertSuccess(requestor *dom.Node, msg string, withMsg bool) bool {
	form := closest(requestor, ".form-horizontal")
	box := form.One(".alert-success")
	if box == nil {
		return false
	}
	hideAlerts(form)
	box.ReplaceClass("hide", "transparent")
	if withMsg {
		in.setText(box, msg)
	}
	in.fadeIn(box)
	return true
}

func (in *Interpreter) setText(box *dom.Node, markup string) {
	if err := box.One("p").SetContent(markup); err != nil {
		in.logger.Warn("setting alert text", zap.Error(err))
	}
}

func (in *Interpreter) fadeIn(box *dom.Node) {
	in.clock.AfterFunc(AlertFadeDelay, func() {
		box.AddClass("fade")
		box.AddClass("in")
		box.RemoveClass("transparent")
	})
}

// closest is n itself when it matches sel, else its nearest matching ancestor.
func closest(n *dom.Node, sel string) *dom.Node {
	if n.Matches(sel) {
		return n
	}
	return n.Ancestor(sel)
}

func hideAlerts(form *dom.Node) {
	for _, a := range form.All(".alert") {
		a.AddClass("hide")
	}
}

func (in *Interpreter) complete(resp Response, env *envelope.Envelope, requestor *dom.Node) {
	c := Completion{Response: resp, Envelope: env}
	switch {
	case requestor == nil:
	case requestor.Tag() == "form":
		c.Form = requestor
	default:
		requestor.RemoveClass("btn-loading")
		requestor.SetDisabled(false)
		c.Form = requestor.Ancestor("form")
	}
	in.bus.Notify(events.SubmitComplete, c)
}
