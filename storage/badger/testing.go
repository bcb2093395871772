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


package badger

import "github.com/poiesic/docchat/storage"

// Repositories bundles all repositories backed by one Backend.
type Repositories struct {
	Documents storage.DocumentRepository
	Sessions  storage.SessionRepository
	Messages  storage.MessageRepository
	Vectors   storage.VectorRepository
}

// NewRepositories creates all repositories on the given backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	documents, err := NewDocumentRepository(backend)
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionRepository(backend)
	if err != nil {
		return nil, err
	}

	messages, err := NewMessageRepository(backend)
	if err != nil {
		return nil, err
	}

	vectors, err := NewVectorRepository(backend)
	if err != nil {
		messages.Close()
		return nil, err
	}

	return &Repositories{
		Documents: documents,
		Sessions:  sessions,
		Messages:  messages,
		Vectors:   vectors,
	}, nil
}

// Close closes all repositories. The backend itself is closed by its owner.
func (r *Repositories) Close() error {
	if err := r.Messages.Close(); err != nil {
		return err
	}
	if err := r.Vectors.Close(); err != nil {
		return err
	}
	if err := r.Sessions.Close(); err != nil {
		return err
	}
	return r.Documents.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the repositories and the backend when done.
func NewMemoryRepositories() (*Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repos, backend, nil
}
