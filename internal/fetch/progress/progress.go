package progress

import "io"

// Writer wraps an io.Writer and reports the cumulative byte count via a
// callback every reportInterval bytes.
type Writer struct {
	Writer         io.Writer
	OnProgress     func(written int64)
	totalWritten   int64
	lastReport     int64 // bytes since last report
	reportInterval int64 // bytes
}

func NewWriter(w io.Writer, interval int64, cb func(written int64)) *Writer {
	return &Writer{
		Writer:         w,
		OnProgress:     cb,
		reportInterval: interval,
	}
}

func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	if n > 0 {
		pw.totalWritten += int64(n)
		pw.lastReport += int64(n)

		if pw.lastReport >= pw.reportInterval {
			pw.OnProgress(pw.totalWritten)
			pw.lastReport = 0
		}
	}

	return n, err
}
