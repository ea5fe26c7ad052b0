package ctl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/sectools/secrules/internal/metrics"
	"github.com/sectools/secrules/internal/rulestore"
)

// Auditor records control operations. Implemented by audit.Logger; a nil
// Auditor disables auditing.
type Auditor interface {
	Record(op string, uid uint32, rule string, outcome string)
}

// Server terminates the control protocol on a Unix socket and drives the
// rule store. One goroutine per connection; a connection may carry any
// number of sequential requests.
type Server struct {
	path    string
	store   *rulestore.Store
	exports *rulestore.ExportCache
	audit   Auditor

	wg sync.WaitGroup
}

// NewServer creates a control server bound to the given socket path.
func NewServer(path string, store *rulestore.Store, exports *rulestore.ExportCache, audit Auditor) *Server {
	return &Server{
		path:    path,
		store:   store,
		exports: exports,
		audit:   audit,
	}
}

// Serve listens on the socket and accepts connections until ctx is
// cancelled. A stale socket file from a previous run is removed first.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}

	slog.Info("control server start", "socket", s.path)
	defer slog.Info("control server stop", "socket", s.path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("control accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("control socket cleanup error", "error", err)
	}
	return nil
}

func (s *Server) handleConn(conn net.Conn) {
	frame := make([]byte, RequestSize)
	for {
		if _, err := io.ReadFull(conn, frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			// short frame: report and drop the connection, there is
			// no way to resynchronize a fixed-layout stream
			slog.Warn("control short frame", "error", err)
			conn.Write([]byte{StatusMalformed})
			return
		}

		req, err := DecodeRequest(frame)
		if err != nil {
			slog.Warn("control decode error", "error", err)
			metrics.ControlOps.WithLabelValues("decode", "malformed").Inc()
			conn.Write([]byte{statusOf(err)})
			return
		}

		if !s.handleRequest(conn, req) {
			return
		}
	}
}

// handleRequest dispatches one decoded request and writes its response.
// Returns false when the connection should be dropped.
func (s *Server) handleRequest(conn net.Conn, req *Request) bool {
	switch req.Op {
	case OpAdd:
		err := s.store.Add(req.UID, req.Rule)
		s.record("add", req.UID, req.Rule, err)
		return s.write(conn, []byte{statusOf(err)})

	case OpRemove:
		found, err := s.store.Remove(req.UID, req.Rule)
		s.record("remove", req.UID, req.Rule, err)
		resp := []byte{statusOf(err), 0}
		if found {
			resp[1] = 1
		}
		return s.write(conn, resp)

	case OpRead:
		data, truncated := s.exports.Export(req.UID, RuleBufferSize)
		s.record("read", req.UID, "", nil)
		metrics.ExportBytes.Observe(float64(len(data)))

		resp := make([]byte, 0, 6+len(data))
		resp = append(resp, StatusOK, 0)
		if truncated {
			resp[1] = 1
		}
		resp = binary.LittleEndian.AppendUint32(resp, uint32(len(data)))
		resp = append(resp, data...)
		return s.write(conn, resp)
	}
	return false
}

func (s *Server) write(conn net.Conn, resp []byte) bool {
	if _, err := conn.Write(resp); err != nil {
		slog.Warn("control write error", "error", err)
		return false
	}
	return true
}

func (s *Server) record(op string, uid uint32, rule string, err error) {
	outcome := metrics.OutcomeOf(err)
	metrics.ControlOps.WithLabelValues(op, outcome).Inc()
	metrics.StoredRules.Set(float64(s.store.Len()))
	if s.audit != nil {
		s.audit.Record(op, uid, rule, outcome)
	}
	if err != nil {
		slog.Warn("control op rejected", "op", op, "uid", uid, "error", err)
	} else {
		slog.Debug("control op", "op", op, "uid", uid)
	}
}
