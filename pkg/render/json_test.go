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

package render

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	var merr *multierror.Error
	merr = multierror.Append(merr, fmt.Errorf("dataset Customer: oops"))
	merr = multierror.Append(merr, fmt.Errorf("dataset Vehicle: oops"))

	cases := []struct {
		name string
		code int
		data interface{}
		want string
	}{
		{
			name: "nil_ok",
			code: http.StatusOK,
			data: nil,
			want: `{"ok":true}`,
		},
		{
			name: "nil_error",
			code: http.StatusNotFound,
			data: nil,
			want: `{"error":"Not Found"}`,
		},
		{
			name: "struct",
			code: http.StatusOK,
			data: map[string]int{"staged": 3},
			want: `{"staged":3}`,
		},
		{
			name: "error",
			code: http.StatusInternalServerError,
			data: fmt.Errorf("merge failed"),
			want: `{"error":"merge failed"}`,
		},
		{
			name: "multierror_itemized",
			code: http.StatusInternalServerError,
			data: merr,
			want: `{"errors":["dataset Customer: oops","dataset Vehicle: oops"]}`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			NewRenderer().RenderJSON(w, tc.code, tc.data)

			if got := w.Code; got != tc.code {
				t.Errorf("code = %d, want %d", got, tc.code)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("content type = %q", got)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tc.want {
				t.Errorf("body = %s, want %s", got, tc.want)
			}
		})
	}
}
