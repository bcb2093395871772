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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Filename must not be empty
//
// NOT validated:
//   - Processed (false is the normal initial state)
//   - FileRef (extraction is a collaborator concern and may use any scheme)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	return nil
}

// ValidateSession validates a ChatSession according to domain rules.
//
// Validation rules:
//   - Id and DocumentId must not be empty
//   - Credential must not be empty (it is stored once and reused for all
//     downstream service calls in the session's lifetime)
func ValidateSession(session *ChatSession) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}

	if session.Id == "" || session.DocumentId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyID)
	}

	if session.Credential == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyCredential)
	}

	return nil
}

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - SessionId must not be empty
//   - Text must not be empty
//   - Role must be valid (user or assistant)
//
// NOT validated:
//   - Id and CreatedAt (populated by the session manager on append)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.SessionId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyID)
	}

	if msg.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyText)
	}

	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
