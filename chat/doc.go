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


// Package chat implements document-grounded conversations.
//
// A Manager owns sessions and their persistent message history; an
// Assistant runs the question/answer loop: record the user's turn, retrieve
// the most relevant chunks of the session's document, compose a grounded
// prompt, and record the generated answer. Each session carries its own AI
// credential, resolved through an ai.Factory.
package chat
