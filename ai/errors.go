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

package ai

import "errors"

var (
	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrMalformedResponse indicates the model's payload could not be parsed
	// into the expected shape after all attempts.
	ErrMalformedResponse = errors.New("model returned malformed response")

	// ErrUnsupportedQuestionType indicates the classifier named a type outside
	// core.QuestionTypes.
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
)
