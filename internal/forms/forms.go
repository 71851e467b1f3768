// Package forms handles form submission for the page: required-field
// validation, background submission of ajax forms, and the styled select
// boxes.
package forms

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tailorshop/storefront/internal/ajax"
	"github.com/tailorshop/storefront/internal/dom"
	"github.com/tailorshop/storefront/internal/events"
)

const requiredFields = "input[data-validate], select[data-validate], textarea[data-validate]"

// Requester issues background requests.
type Requester interface {
	MakeRequest(ctx context.Context, req ajax.Request, cb ajax.Callback)
}

// Interpreter presents a reply next to the element that caused it.
type Interpreter interface {
	Interpret(resp ajax.Response, requestor *dom.Node)
}

// Submitter intercepts form submissions.
type Submitter struct {
	bus    *events.Bus
	req    Requester
	interp Interpreter
	logger *zap.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(bus *events.Bus, req Requester, interp Interpreter, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{bus: bus, req: req, interp: interp, logger: logger.Named("forms")}
}

// IsAjax reports whether form submits in the background.
func IsAjax(form *dom.Node) bool {
	return form.HasClass("ajax_request_form") || form.Attr("data-submit") == "ajax"
}

// Submit handles a submit event whose target is the form. Ajax forms never
// navigate: the default is prevented and, when the form validates, the
// request goes out with the submit trigger disabled until the reply is in.
// It reports whether a request was sent.
func (s *Submitter) Submit(ctx context.Context, ev *dom.Event) bool {
	s.bus.Notify(events.SubmitEvent, ev)

	form := ev.Target
	if !IsAjax(form) {
		return false
	}
	ev.PreventDefault()

	if !Validate(form) {
		s.logger.Debug("form failed validation", zap.String("action", form.Attr("action")))
		return false
	}

	trigger := form.One("input[type=submit]")
	if trigger == nil {
		trigger = form.One("button[type=submit]")
	}
	if trigger != nil {
		trigger.AddClass("btn-loading")
		trigger.SetDisabled(true)
		trigger.Ancestor(".control-group").RemoveClass("error")
	}

	requestor := trigger
	if requestor == nil {
		requestor = form
	}
	s.req.MakeRequest(ctx, ajax.Request{
		URL:    form.Attr("action"),
		Method: form.Attr("method"),
		Form:   form,
	}, func(resp ajax.Response) {
		s.interp.Interpret(resp, requestor)
	})
	return true
}

// Validate checks every field marked data-validate=required. A blank field
// puts its control group in the error state; a filled one clears it. It
// reports whether every field passed.
func Validate(form *dom.Node) bool {
	valid := true
	for _, f := range form.All(requiredFields) {
		if f.Attr("data-validate") != "required" {
			continue
		}
		group := f.Ancestor(".control-group")
		if strings.TrimSpace(f.Value()) == "" {
			valid = false
			group.AddClass("error")
		} else {
			group.RemoveClass("error")
		}
	}
	return valid
}

// InitSelects makes each styled select agree with the label shown above
// it: the option whose text matches the label gets selected.
func InitSelects(doc *dom.Document) {
	for _, wrap := range doc.All(".select-wrap") {
		label := normalize(wrap.One(".active-option").Text())
		sel := wrap.One("select")
		if sel == nil {
			continue
		}
		if normalize(sel.SelectedOption().Text()) == label {
			continue
		}
		for i, opt := range sel.Options() {
			if normalize(opt.Text()) == label {
				sel.SetSelectedIndex(i)
				break
			}
		}
	}
}

// SelectChanged copies the selected option's text into the select's label.
func SelectChanged(sel *dom.Node) {
	label := sel.Previous(".active-option")
	opt := sel.SelectedOption()
	if label == nil || opt == nil {
		return
	}
	label.SetText(strings.TrimSpace(opt.Text()))
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
