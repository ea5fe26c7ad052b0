// Package device is the byte-stream surface of the rule store, mirroring
// the character-device contract: a write appends one rule under the
// sentinel identifier, a read drains the formatted export of the whole
// store through a per-session cursor.
package device

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sectools/secrules/internal/rulestore"
)

// Device binds the stream sessions to a store.
type Device struct {
	store     *rulestore.Store
	exports   *rulestore.ExportCache
	exportCap int
}

// Option configures a Device.
type Option func(*Device)

// WithExportCap overrides the export size cap served to readers.
func WithExportCap(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.exportCap = n
		}
	}
}

// New creates a device over store.
func New(store *rulestore.Store, exports *rulestore.ExportCache, opts ...Option) *Device {
	d := &Device{
		store:     store,
		exports:   exports,
		exportCap: rulestore.DefaultExportCap,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenWriter opens a write session. Each Write call appends exactly one
// rule under the sentinel identifier.
func (d *Device) OpenWriter() *Writer {
	return &Writer{
		device:  d,
		session: uuid.NewString(),
	}
}

// OpenReader opens a read session. The export is snapshotted on the
// first Read and served through a cursor until drained.
func (d *Device) OpenReader() *Reader {
	return &Reader{
		device:  d,
		session: uuid.NewString(),
	}
}

// Writer is a write session on the device.
type Writer struct {
	device  *Device
	session string
}

// Write appends p as one rule under the sentinel identifier. A single
// trailing newline is trimmed first, so `echo rule > device` works as it
// did against the kernel device. Returns len(p) on success.
func (w *Writer) Write(p []byte) (int, error) {
	rule := strings.TrimSuffix(string(p), "\n")
	if err := w.device.store.Add(rulestore.SentinelUID, rule); err != nil {
		slog.Warn("device write rejected", "session", w.session, "error", err)
		return 0, err
	}
	slog.Debug("device write", "session", w.session, "bytes", len(p))
	return len(p), nil
}

// Close ends the session. It exists to satisfy io.WriteCloser; there is
// no buffered state to flush.
func (w *Writer) Close() error { return nil }

// Reader is a read session on the device.
type Reader struct {
	device  *Device
	session string

	mu        sync.Mutex
	snapshot  []byte
	offset    int
	truncated bool
	primed    bool
}

// Read copies up to len(p) bytes of the export into p, advancing the
// session cursor. Returns io.EOF once the export is drained.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.primed {
		r.snapshot, r.truncated = r.device.exports.Export(rulestore.SentinelUID, r.device.exportCap)
		r.primed = true
		slog.Debug("device read session primed",
			"session", r.session, "bytes", len(r.snapshot), "truncated", r.truncated)
	}

	if r.offset >= len(r.snapshot) {
		return 0, io.EOF
	}

	n := copy(p, r.snapshot[r.offset:])
	r.offset += n
	return n, nil
}

// Truncated reports whether the export hit the device's size cap. Only
// meaningful after the first Read.
func (r *Reader) Truncated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.truncated
}

// Close ends the session and releases the snapshot.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	r.offset = 0
	return nil
}

var (
	_ io.WriteCloser = (*Writer)(nil)
	_ io.ReadCloser  = (*Reader)(nil)
)
