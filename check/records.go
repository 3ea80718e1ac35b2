package main

import (
	"os"

	"github.com/zeebo/errs"
	"github.com/zeebo/mon"
	"github.com/zeebo/pcg"
	"golang.org/x/sys/unix"

	"github.com/zeebo/bitfield"
)

// records is a run of fixed size buffers sharing one backing slice.
type records struct {
	buf  []byte
	size int
	fh   *os.File
}

func heapRecords(n, size int) *records {
	return &records{buf: make([]byte, n*size), size: size}
}

// mapRecords truncates the file at path to hold n records and maps it into
// memory.
func mapRecords(path string, n, size int) (_ *records, err error) {
	defer mon.Start().Stop(&err)

	fh, err := os.Create(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	length := n * size
	if err := fh.Truncate(int64(length)); err != nil {
		return nil, errs.Combine(errs.Wrap(err), fh.Close())
	}

	buf, err := unix.Mmap(int(fh.Fd()), 0, length,
		unix.PROT_WRITE|unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errs.Combine(errs.Wrap(err), fh.Close())
	}

	return &records{buf: buf, size: size, fh: fh}, nil
}

func (r *records) Len() int        { return len(r.buf) / r.size }
func (r *records) At(i int) []byte { return r.buf[i*r.size : (i+1)*r.size] }

func (r *records) Close() error {
	if r.fh == nil {
		return nil
	}
	return errs.Combine(
		errs.Wrap(unix.Msync(r.buf, unix.MS_SYNC)),
		errs.Wrap(unix.Munmap(r.buf)),
		errs.Wrap(r.fh.Close()),
	)
}

// fieldCheck writes a random value into one field of a record and returns a
// function that confirms the value is still there.
type fieldCheck struct {
	info bitfield.FieldInfo
	fill func(rng *pcg.T, buf []byte) (func(buf []byte) error, error)
}

func newCheck[T comparable](f bitfield.Field[T], gen func(rng *pcg.T) T) fieldCheck {
	return fieldCheck{
		info: f.Info(),
		fill: func(rng *pcg.T, buf []byte) (func([]byte) error, error) {
			v := gen(rng)
			if err := f.SetChecked(buf, v); err != nil {
				return nil, errs.Wrap(err)
			}
			return func(buf []byte) error {
				got, err := f.Get(buf)
				if err != nil {
					return errs.Wrap(err)
				}
				if got != v {
					return errs.New("field %s: got %v, want %v", f.Name(), got, v)
				}
				return nil
			}, nil
		},
	}
}

var fillThunk, verifyThunk mon.Thunk

func (s *schema) fill(rng *pcg.T, buf []byte) (verifies []func([]byte) error, err error) {
	timer := fillThunk.Start()
	defer timer.Stop(&err)

	for _, fc := range s.checks {
		verify, err := fc.fill(rng, buf)
		if err != nil {
			return nil, err
		}
		verifies = append(verifies, verify)
	}
	return verifies, nil
}

func verify(buf []byte, verifies []func([]byte) error) (err error) {
	timer := verifyThunk.Start()
	defer timer.Stop(&err)

	for _, verify := range verifies {
		if err := verify(buf); err != nil {
			return err
		}
	}
	return nil
}

// run fills every record with random values and then verifies all of them,
// so a write that strays outside its field shows up as a mismatch in a
// neighbor.
func (s *schema) run(rng *pcg.T, recs *records) (err error) {
	defer mon.Start().Stop(&err)

	verifiers := make([][]func([]byte) error, recs.Len())
	for i := range verifiers {
		verifiers[i], err = s.fill(rng, recs.At(i))
		if err != nil {
			return errs.New("record %d: %v", i, err)
		}
	}

	for i, verifies := range verifiers {
		if err := verify(recs.At(i), verifies); err != nil {
			return errs.New("record %d: %v", i, err)
		}
	}

	return nil
}
