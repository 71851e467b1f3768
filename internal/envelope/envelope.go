// Package envelope is the JSON reply every AJAX endpoint answers with.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Methods the client knows how to act on.
const (
	MethodDialog   = "dialog"
	MethodRedirect = "redirect"
	MethodRefresh  = "refresh"
	MethodOK       = "ok"
)

// TypeError marks a dialog envelope as an error presentation.
const TypeError = "red"

// ErrMalformed is returned by Parse for a body that is not an envelope.
var ErrMalformed = errors.New("malformed response envelope")

// Envelope tells the client what to do after a request.
type Envelope struct {
	Method     string `json:"method"`
	Type       string `json:"type,omitempty"`
	DialogText string `json:"dialog_text,omitempty"`
	URI        string `json:"uri,omitempty"`
}

// IsError reports whether the envelope asks for the error presentation.
func (e *Envelope) IsError() bool { return e != nil && e.Type == TypeError }

func Dialog(text string) Envelope { return Envelope{Method: MethodDialog, DialogText: text} }

func ErrorDialog(text string) Envelope {
	return Envelope{Method: MethodDialog, Type: TypeError, DialogText: text}
}

func Redirect(uri string) Envelope { return Envelope{Method: MethodRedirect, URI: uri} }

func Refresh() Envelope { return Envelope{Method: MethodRefresh} }

// OK is a success with no further instruction; clients fall back to the
// generic success presentation.
func OK() Envelope { return Envelope{Method: MethodOK} }

// Write sends env as the response body.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// IsAjax reports whether r came from the page runtime's transport.
func IsAjax(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// Respond answers an AJAX request with env. A plain browser request for a
// redirect gets a 303 instead, so forms keep working without the runtime.
func Respond(w http.ResponseWriter, r *http.Request, env Envelope) {
	if env.Method == MethodRedirect && !IsAjax(r) {
		http.Redirect(w, r, env.URI, http.StatusSeeOther)
		return
	}
	Write(w, http.StatusOK, env)
}

// Parse decodes a response body. An empty body yields nil with no error:
// there is nothing for the client to act on.
func Parse(body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &env, nil
}
