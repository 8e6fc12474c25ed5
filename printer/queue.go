// Package printer batches rendered labels into raster jobs and reports the
// state of the configured device.
package printer

import (
	"context"
	"fmt"
	"image"

	"github.com/ByLCY/qlabel/logging"
	"github.com/ByLCY/qlabel/media"
	"github.com/ByLCY/qlabel/ql"
)

// Entry is one canvas waiting to be printed.
type Entry struct {
	Canvas  image.Image
	Cut     bool
	HighRes bool
	Dither  bool
	Rotate  ql.Rotation
}

// EntryOption adjusts an entry when it is enqueued.
type EntryOption func(*Entry)

// WithDither switches dithering on or off. Entries dither by default.
func WithDither(on bool) EntryOption {
	return func(e *Entry) { e.Dither = on }
}

// WithRotation sets how the canvas is turned before rasterising.
func WithRotation(r ql.Rotation) EntryOption {
	return func(e *Entry) { e.Rotate = r }
}

// Encoder builds one job out of pages. *ql.Raster implements it.
type Encoder interface {
	AddPage(img image.Image, opts ql.PageOptions) error
	Bytes() []byte
}

// Transport delivers a job. ql.Conn implements it.
type Transport interface {
	Send(ctx context.Context, data []byte) (ql.Outcome, error)
}

// Queue collects entries until Flush sends them as one job. A Queue has a
// single owner and is not safe for concurrent use.
type Queue struct {
	model  media.Model
	label  media.Label
	device string

	newEncoder func() (Encoder, error)
	open       func(device string) (Transport, error)

	entries []Entry
}

// Option configures a Queue.
type Option func(*Queue)

// WithEncoder replaces the raster encoder.
func WithEncoder(f func() (Encoder, error)) Option {
	return func(q *Queue) { q.newEncoder = f }
}

// WithTransport replaces ql.Open.
func WithTransport(f func(device string) (Transport, error)) Option {
	return func(q *Queue) { q.open = f }
}

// NewQueue creates an empty queue for one printer and label stock.
func NewQueue(model media.Model, label media.Label, device string, opts ...Option) *Queue {
	q := &Queue{model: model, label: label, device: device}
	q.newEncoder = func() (Encoder, error) { return ql.NewRaster(model, label) }
	q.open = func(device string) (Transport, error) { return ql.Open(device) }
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Label returns the label stock the queue prints on.
func (q *Queue) Label() media.Label { return q.label }

// Enqueue appends a canvas.
func (q *Queue) Enqueue(canvas image.Image, cut, highRes bool, opts ...EntryOption) {
	e := Entry{Canvas: canvas, Cut: cut, HighRes: highRes, Dither: true}
	for _, opt := range opts {
		opt(&e)
	}
	q.entries = append(q.entries, e)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.entries) }

// Entries returns a copy of the queued entries.
func (q *Queue) Entries() []Entry {
	return append([]Entry(nil), q.entries...)
}

// Flush encodes every entry in order into one job and sends it. The queue
// is empty afterwards whatever the outcome. An entry the encoder rejects is
// returned as an error and nothing is sent. Offline mode encodes but never
// touches the device and always reports true. Transport failures are
// logged and reported as false.
func (q *Queue) Flush(ctx context.Context, offline bool) (bool, error) {
	entries := q.entries
	q.entries = nil
	if len(entries) == 0 {
		return false, nil
	}
	log := logging.Logger().With("device", q.device, "label", q.label.ID, "model", q.model.ID)

	enc, err := q.newEncoder()
	if err != nil {
		return false, fmt.Errorf("create raster job: %w", err)
	}
	for i, e := range entries {
		err := enc.AddPage(e.Canvas, ql.PageOptions{
			Cut:     e.Cut,
			HighRes: e.HighRes,
			Dither:  e.Dither,
			Rotate:  e.Rotate,
		})
		if err != nil {
			return false, fmt.Errorf("encode label %d: %w", i, err)
		}
	}
	data := enc.Bytes()

	if offline {
		log.Info("offline, job not sent", "labels", len(entries), "bytes", len(data))
		return true, nil
	}

	t, err := q.open(q.device)
	if err != nil {
		log.Error("open printer", "err", err)
		return false, nil
	}
	out, err := t.Send(ctx, data)
	log.Info("sent job", "labels", len(entries), "bytes", len(data))
	if err != nil {
		log.Warn("failed to print label", "err", err)
		return false, nil
	}
	log.Info("printer response", "printed", out.Printed, "ready", out.ReadyForNext, "confirmed", out.Confirmed)
	if out.Printed && out.ReadyForNext {
		return true, nil
	}
	log.Warn("failed to print label")
	return false, nil
}
