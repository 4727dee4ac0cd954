package bind_group_provider

// BufferWrite describes one pending GPU buffer write, consumed in batches by
// Renderer.WriteBuffers. Overlay hosts stage their per-frame uniform updates
// as BufferWrites inside the render callback.
type BufferWrite struct {
	// Provider holds the buffer being written.
	Provider BindGroupProvider

	// Binding is the binding index of the target buffer on the provider.
	// Writes targeting a binding with no buffer are skipped.
	Binding int

	// Offset is the destination byte offset within the buffer.
	Offset uint64

	// Data is the payload to write.
	Data []byte
}
