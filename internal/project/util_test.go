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

package project

import "testing"

func TestTrimSpaceAndNonPrintable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{" state ", "state"},
		{"state\ufeff", "state"},
		{"\x00V1N123\x00", "V1N123"},
	}

	for _, tc := range cases {
		if got := TrimSpaceAndNonPrintable(tc.in); got != tc.want {
			t.Errorf("TrimSpaceAndNonPrintable(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
