package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/prior-it/socialauth/core"
)

const cookieSession = "socialauth-session"

const (
	sessionNamespace = "socialauth-namespace"
	sessionPrefix    = "storage."
)

// SessionStorage keeps provider data in the encrypted session cookie.
// Every change is written to the response immediately, so it should be used before the response body is written.
type SessionStorage struct {
	session *sessions.Session
	writer  http.ResponseWriter
	request *http.Request
}

// Force struct to implement the core interface
var _ core.Storage = &SessionStorage{}

func NewSessionStorage(call *Call) *SessionStorage {
	return &SessionStorage{call.Session(), call.Writer, call.Request}
}

// SessionStorageFactory is the default StorageFactory.
func SessionStorageFactory(call *Call) (core.Storage, error) {
	return NewSessionStorage(call), nil
}

func (s *SessionStorage) Get(_ context.Context, key string) (string, error) {
	value, _ := s.session.Values[sessionPrefix+key].(string)
	return value, nil
}

func (s *SessionStorage) Set(_ context.Context, key string, value string) error {
	s.session.Values[sessionPrefix+key] = value
	return s.save()
}

func (s *SessionStorage) Delete(_ context.Context, key string) error {
	if _, exists := s.session.Values[sessionPrefix+key]; !exists {
		return nil
	}
	delete(s.session.Values, sessionPrefix+key)
	return s.save()
}

func (s *SessionStorage) save() error {
	if err := s.session.Save(s.request, s.writer); err != nil {
		return fmt.Errorf("cannot save session: %w", err)
	}
	return nil
}

// SessionNamespace returns the id that identifies the current browser session in server-side storage.
// A new id is generated and saved in the session if it does not have one yet.
func (call *Call) SessionNamespace() (uuid.UUID, error) {
	session := call.Session()
	if raw, ok := session.Values[sessionNamespace].(string); ok {
		if namespace, err := uuid.Parse(raw); err == nil {
			return namespace, nil
		}
	}
	namespace := uuid.New()
	session.Values[sessionNamespace] = namespace.String()
	if err := session.Save(call.Request, call.Writer); err != nil {
		return uuid.Nil, fmt.Errorf("cannot save session namespace: %w", err)
	}
	return namespace, nil
}
