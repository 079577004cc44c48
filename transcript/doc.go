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

// Package transcript normalizes raw interview transcripts into speaker turns.
//
// Lines of the form "Speaker: content" start or extend a turn. Labels are
// trimmed and title-cased, configured aliases collapse onto one canonical
// name, and generic labels (unknown, speaker, host) become "Unknown Speaker".
// Lines without a label fold into an "Unknown Speaker" turn. Consecutive
// turns from the same speaker are merged.
package transcript
