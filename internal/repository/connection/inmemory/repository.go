package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/val-x/Val-X-Site-sub002/internal/repository/connection"
)

type repo struct {
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, sessionID string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "session_id", sessionID)
	if _, ok := r.connList[conn]; ok || r.idList[sessionID] != nil {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = sessionID
	r.idList[sessionID] = conn

	slog.Debug(funcName, "result", "OK")
	return nil
}

// RemoveByConn forgets conn without closing it and returns its session id.
func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName)
	sessionID, ok := r.connList[conn]
	if !ok {
		slog.Info(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, sessionID)

	slog.Debug(funcName, "result", sessionID)
	return sessionID, nil
}

// RemoveBySessionID forgets the host connection of a session and returns it so the
// caller can close it.
func (r *repo) RemoveBySessionID(sessionID string) (*websocket.Conn, error) {
	funcName := "connection.inmemory.RemoveBySessionID"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "session_id", sessionID)
	conn, ok := r.idList[sessionID]
	if !ok {
		slog.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, sessionID)

	slog.Debug(funcName, "result", "OK")
	return conn, nil
}

func (r *repo) GetSessionID(conn *websocket.Conn) (string, error) {
	funcName := "connection.inmemory.GetSessionID"
	r.mu.RLock()
	defer r.mu.RUnlock()

	slog.Debug(funcName)
	sessionID, ok := r.connList[conn]
	if !ok {
		slog.Info(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	slog.Debug(funcName, "result", sessionID)
	return sessionID, nil
}

func (r *repo) GetConn(sessionID string) (*websocket.Conn, error) {
	funcName := "connection.inmemory.GetConn"
	r.mu.RLock()
	defer r.mu.RUnlock()

	slog.Debug(funcName, "session_id", sessionID)
	conn, ok := r.idList[sessionID]
	if !ok {
		slog.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	slog.Debug(funcName, "result", "OK")
	return conn, nil
}
