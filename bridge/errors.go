package bridge

import "errors"

// Boundary-level errors. Every one of these is converted into a structured
// {"error": ...} payload before crossing the foreign boundary.

// ErrNotInitialized is returned when an operation is invoked before Init.
// The host must call Init once (it is idempotent) before executing requests.
var ErrNotInitialized = errors.New("bridge is not initialized")

// ErrBridgeClosed is returned for operations issued after Shutdown.
var ErrBridgeClosed = errors.New("bridge is shut down")

// ErrBatchTooLarge indicates a batch exceeding the configured item cap.
// The batch is rejected whole; nothing is partially executed silently.
var ErrBatchTooLarge = errors.New("batch exceeds the maximum item count")

// ErrSerializeResponse indicates the response could not be encoded back to
// the wire format. The request itself may have succeeded on the network.
var ErrSerializeResponse = errors.New("failed to serialize response")
