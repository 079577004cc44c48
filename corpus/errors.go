// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package corpus

import "errors"

var (
	// ErrUndecodable indicates a transcript is not valid UTF-8 text.
	ErrUndecodable = errors.New("transcript could not be decoded as UTF-8")

	// ErrMetadataParse indicates a metadata file is not valid JSON.
	ErrMetadataParse = errors.New("metadata parse error")

	// ErrAuditFailed is returned by callers that refuse to continue after an
	// audit with failures.
	ErrAuditFailed = errors.New("corpus audit failed")
)
