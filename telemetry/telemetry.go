package telemetry

// Span names emitted by the compiler and the execution backends.
const (
	SpanFinalize   = "bfjit.finalize"    // image -> executable mapping
	SpanRun        = "bfjit.run"         // native execution
	SpanSandboxRun = "bfjit.sandbox.run" // emulated execution
)

// Span attribute keys.
const (
	AttrInstructions = "bfjit.instructions"
	AttrImageSize    = "bfjit.image_size"
	AttrSyscalls     = "bfjit.syscalls"
)
