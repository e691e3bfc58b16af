// Package rowstore provides a spillable append-only row buffer holding one
// partition's rows. Rows stay in memory up to a configured threshold; overflow
// is written to a temp file as Arrow IPC record batches. The buffer supports
// any number of independent forward iterators once filling is done.
package rowstore

import (
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/gtk96/windmill/internal/errors"
	"github.com/gtk96/windmill/internal/rows"
)

// Options configures buffer thresholds.
type Options struct {
	// InMemoryRowThreshold is the number of rows kept in memory before
	// spilling starts.
	InMemoryRowThreshold int
	// SpillBatchRows is the number of rows per spilled record batch.
	SpillBatchRows int
	// SpillDir is where spill files are created; empty means the OS temp dir.
	SpillDir string
}

const (
	defaultInMemoryRowThreshold = 4096
	defaultSpillBatchRows       = 1024
)

func (o Options) withDefaults() Options {
	if o.InMemoryRowThreshold <= 0 {
		o.InMemoryRowThreshold = defaultInMemoryRowThreshold
	}
	if o.SpillBatchRows <= 0 {
		o.SpillBatchRows = defaultSpillBatchRows
	}
	return o
}

// Buffer is a spillable append-only row array. The lifecycle per partition is
// Add* -> iterate* -> Clear; adding after the first iterator is created is a
// misuse.
type Buffer struct {
	schema rows.Schema
	opts   Options
	mem    memory.Allocator

	inMemory []rows.Row

	spillFile   *os.File
	spillWriter *ipc.FileWriter
	pending     []rows.Row
	spilledRows int
	spillBytes  int64
	sealed      bool
}

// NewBuffer creates an empty buffer for rows of the given schema.
func NewBuffer(schema rows.Schema, opts Options, mem memory.Allocator) *Buffer {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Buffer{schema: schema, opts: opts.withDefaults(), mem: mem}
}

// Add appends one row.
func (b *Buffer) Add(r rows.Row) error {
	if b.sealed {
		return errors.NewInternalError("Spill", errors.NewConfigurationError(
			"Spill", "Add after iteration started"))
	}
	if len(b.inMemory) < b.opts.InMemoryRowThreshold && b.spillFile == nil {
		b.inMemory = append(b.inMemory, r)
		return nil
	}
	b.pending = append(b.pending, r)
	if len(b.pending) >= b.opts.SpillBatchRows {
		return b.flushPending()
	}
	return nil
}

// Len returns the total number of buffered rows.
func (b *Buffer) Len() int {
	return len(b.inMemory) + b.spilledRows + len(b.pending)
}

// SpillSize returns the number of bytes spilled for the current fill.
func (b *Buffer) SpillSize() int64 {
	return b.spillBytes
}

func (b *Buffer) flushPending() error {
	if len(b.pending) == 0 {
		return nil
	}
	if b.spillFile == nil {
		f, err := os.CreateTemp(b.opts.SpillDir, "windmill-spill-*.arrow")
		if err != nil {
			return err
		}
		w, err := ipc.NewFileWriter(f,
			ipc.WithSchema(arrowSchema(b.schema)),
			ipc.WithAllocator(b.mem))
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return err
		}
		b.spillFile = f
		b.spillWriter = w
	}

	rec, err := encodeBatch(b.mem, arrowSchema(b.schema), b.pending)
	if err != nil {
		return err
	}
	defer rec.Release()
	if err := b.spillWriter.Write(rec); err != nil {
		return err
	}
	b.spilledRows += len(b.pending)
	b.pending = b.pending[:0]
	return nil
}

// seal finalizes the spill file so readers can open it. Called by the first
// iterator; afterwards the buffer is read-only until Clear.
func (b *Buffer) seal() error {
	if b.sealed {
		return nil
	}
	if err := b.flushPending(); err != nil {
		return err
	}
	if b.spillWriter != nil {
		if err := b.spillWriter.Close(); err != nil {
			return err
		}
		b.spillWriter = nil
		st, err := b.spillFile.Stat()
		if err != nil {
			return err
		}
		b.spillBytes = st.Size()
	}
	b.sealed = true
	return nil
}

// Clear discards all buffered rows and removes the spill file. The caller is
// responsible for recording SpillSize before clearing.
func (b *Buffer) Clear() error {
	if b.spillWriter != nil {
		b.spillWriter.Close()
		b.spillWriter = nil
	}
	var err error
	if b.spillFile != nil {
		name := b.spillFile.Name()
		b.spillFile.Close()
		err = os.Remove(name)
		b.spillFile = nil
	}
	b.inMemory = nil
	b.pending = nil
	b.spilledRows = 0
	b.spillBytes = 0
	b.sealed = false
	return err
}

// NewIterator returns a forward one-pass iterator over all buffered rows.
func (b *Buffer) NewIterator() (*Iterator, error) {
	return b.NewIteratorAt(0)
}

// NewIteratorAt returns a forward iterator starting at the given row index.
// Multiple iterators may be open at once; each reads the spill file
// independently.
func (b *Buffer) NewIteratorAt(start int) (*Iterator, error) {
	if err := b.seal(); err != nil {
		return nil, err
	}
	it := &Iterator{buf: b, next: 0}
	for it.next < start {
		if _, err := it.Next(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Iterator is a forward one-pass cursor over a sealed buffer.
type Iterator struct {
	buf  *Buffer
	next int

	reader  *ipc.FileReader
	file    *os.File
	chunk   []rows.Row
	chunkAt int
}

// Next returns the next row, or io.EOF when the buffer is exhausted. Rows
// come back in insertion order: the in-memory head first, then the spilled
// tail.
func (it *Iterator) Next() (rows.Row, error) {
	b := it.buf
	if it.next < len(b.inMemory) {
		r := b.inMemory[it.next]
		it.next++
		return r, nil
	}
	if it.next-len(b.inMemory) < b.spilledRows {
		r, err := it.nextSpilled()
		if err != nil {
			return nil, err
		}
		it.next++
		return r, nil
	}
	it.Close()
	return nil, io.EOF
}

func (it *Iterator) nextSpilled() (rows.Row, error) {
	for it.chunkAt >= len(it.chunk) {
		if it.reader == nil {
			f, err := os.Open(it.buf.spillFile.Name())
			if err != nil {
				return nil, err
			}
			r, err := ipc.NewFileReader(f, ipc.WithAllocator(it.buf.mem))
			if err != nil {
				f.Close()
				return nil, err
			}
			it.file = f
			it.reader = r
		}
		rec, err := it.reader.Read()
		if err != nil {
			return nil, err
		}
		it.chunk, err = decodeBatch(rec)
		if err != nil {
			return nil, err
		}
		it.chunkAt = 0
	}
	r := it.chunk[it.chunkAt]
	it.chunkAt++
	return r, nil
}

// Close releases the iterator's spill reader. Iterators close themselves when
// exhausted; calling Close early is safe.
func (it *Iterator) Close() {
	if it.reader != nil {
		it.reader.Close()
		it.reader = nil
	}
	if it.file != nil {
		it.file.Close()
		it.file = nil
	}
	it.chunk = nil
}
