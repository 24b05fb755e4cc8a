package tracer

import "fmt"

// Lease provides write access to a mapped buffer. Releasing a lease unmaps
// the buffer; a lease can only be released once.
type Lease struct {
	buf      Buffer
	data     []byte
	released bool
}

// Map buf and return a lease on its contents.
func AcquireLease(buf Buffer) (*Lease, error) {
	data, err := buf.Map()
	if err != nil {
		return nil, fmt.Errorf("tracer: could not map buffer %q: %w", buf.Desc().Name, err)
	}
	return &Lease{buf: buf, data: data}, nil
}

// Get the mapped buffer contents.
func (l *Lease) Bytes() []byte {
	if l.released {
		return nil
	}
	return l.data
}

// Unmap the leased buffer. Calling Release more than once is a no-op.
func (l *Lease) Release() error {
	if l.released {
		return nil
	}
	l.released = true
	l.data = nil

	if err := l.buf.Unmap(); err != nil {
		return fmt.Errorf("tracer: could not unmap buffer %q: %w", l.buf.Desc().Name, err)
	}
	return nil
}

// Lease buf for the duration of fn. The buffer is unmapped when fn returns
// or panics.
func WithLease(buf Buffer, fn func(data []byte) error) (err error) {
	lease, err := AcquireLease(buf)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lease.Release(); err == nil {
			err = relErr
		}
	}()

	return fn(lease.Bytes())
}
