package exporter

// ExporterOption is a functional option used to configure an Exporter during construction.
type ExporterOption func(*exporter)

// WithFilePrefix sets the file name prefix for exported frames.
// Frames are written as <prefix>_00000.png, <prefix>_00001.png, and so on.
// The default prefix is "frame".
//
// Parameters:
//   - prefix: the file name prefix to use
//
// Returns:
//   - ExporterOption: a function that sets the file prefix for an exporter
func WithFilePrefix(prefix string) ExporterOption {
	return func(e *exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithEncodeWorkers sets the number of background workers used for PNG encoding.
// Defaults to the CPU count minus one, with a minimum of one.
//
// Parameters:
//   - workers: the number of encode workers
//
// Returns:
//   - ExporterOption: a function that sets the worker count for an exporter
func WithEncodeWorkers(workers int) ExporterOption {
	return func(e *exporter) {
		if workers > 0 {
			e.encodeWorkers = workers
		}
	}
}
