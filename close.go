package scalebloom

import "errors"

// Close releases the file and its mapping. Unless WithFlushOnClose was
// given, unflushed mutations may be lost. Close is idempotent.
func (f *Filter) Close() error {
	if f == nil || f.eng.Closed() {
		return nil
	}
	var flushErr error
	if f.flushOnClose {
		flushErr = f.Flush()
	}
	closeErr := translateError(f.path, f.eng.Close())
	if closeErr != nil {
		f.logger.Error("close failed", "error", closeErr)
	}
	return errors.Join(flushErr, closeErr)
}
