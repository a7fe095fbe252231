// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package render writes JSON responses for the job servers.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
)

const (
	contentType = "application/json"

	// errTmpl is filled with http.StatusText values only, which never
	// need JSON escaping.
	errTmpl = `{"error":"%s"}`
	okResp  = `{"ok":true}`
)

type errorResponse struct {
	Error  string   `json:"error,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Renderer writes run results and errors as JSON.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes data as a JSON response with the given status code.
// The payload is encoded into a buffer first so an encoding failure can
// still produce a well-formed 500 body instead of a truncated response.
//
// nil data renders as {"ok":true} for 2xx codes and as an error envelope
// with the status text otherwise. Errors render as {"error": ...}; a
// *multierror.Error renders each wrapped error under "errors" so partial
// run failures stay itemized.
func (r *Renderer) RenderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", contentType)

	if data == nil {
		w.WriteHeader(code)
		if code >= 200 && code < 300 {
			fmt.Fprint(w, okResp)
		} else {
			fmt.Fprintf(w, errTmpl, http.StatusText(code))
		}
		return
	}

	switch typ := data.(type) {
	case *multierror.Error:
		msgs := make([]string, 0, len(typ.WrappedErrors()))
		for _, err := range typ.WrappedErrors() {
			msgs = append(msgs, err.Error())
		}
		data = &errorResponse{Errors: msgs}
	case error:
		data = &errorResponse{Error: typ.Error()}
	}

	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, errTmpl, http.StatusText(http.StatusInternalServerError))
		return
	}

	w.WriteHeader(code)
	_, _ = b.WriteTo(w)
}
