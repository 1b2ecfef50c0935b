// Package main builds the c-shared httpbridge library consumed by mobile
// hosts over FFI. Every exported function is callable from C; memory handed
// across the boundary is C-allocated and owned by the caller until it is
// passed back to free_string or free_buffer.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	uint8_t *data;
	size_t   len;
	size_t   capacity;
} shared_buffer_t;
*/
import "C"

import (
	"context"
	"errors"
	"os"
	"sync"
	"unicode/utf8"
	"unsafe"

	"github.com/jeffersonwarrior/httpbridge/bridge"
	"github.com/jeffersonwarrior/httpbridge/internal/config"
	"github.com/jeffersonwarrior/httpbridge/internal/logging"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
	"github.com/jeffersonwarrior/httpbridge/internal/transport"
)

// Status codes returned by execute_request_direct.
const (
	statusOK              = 0
	statusNullPointer     = -1
	statusInvalidUTF8     = -2
	statusParseFailure    = -3
	statusNotInitialized  = -4
	statusBufferTooSmall  = -5
	statusSerializeFailed = -6
	statusRequestFailed   = -7
	statusTimeout         = -8
)

var (
	initOnce sync.Once
	br       *bridge.Bridge
)

//export init_http_client
func init_http_client() C.bool {
	initOnce.Do(func() {
		cfg, _ := config.Load(os.Getenv("HTTPBRIDGE_CONFIG"))
		br = bridge.New(cfg)
		if err := br.Init(); err != nil {
			logging.GetLogger().Errorf("init failed: %v", err)
		}
	})
	// Init latches its first error, so repeat calls keep reporting the
	// original outcome instead of a stale success.
	return C.bool(br != nil && br.Init() == nil)
}

//export execute_request
func execute_request(requestJSON *C.char) *C.char {
	if requestJSON == nil {
		return C.CString(string(model.EncodeError(model.ErrEmptyInput)))
	}
	if br == nil {
		return C.CString(string(model.EncodeError(bridge.ErrNotInitialized)))
	}
	out := br.Execute([]byte(C.GoString(requestJSON)))
	return C.CString(string(out))
}

//export execute_batch_requests
func execute_batch_requests(requestsJSON *C.char) *C.char {
	if requestsJSON == nil {
		return C.CString(string(model.EncodeError(model.ErrEmptyInput)))
	}
	if br == nil {
		return C.CString(string(model.EncodeError(bridge.ErrNotInitialized)))
	}
	out := br.ExecuteBatch([]byte(C.GoString(requestsJSON)), 0)
	return C.CString(string(out))
}

//export execute_request_direct
func execute_request_direct(requestJSON *C.char, responseBuffer *C.shared_buffer_t) C.int32_t {
	if requestJSON == nil || responseBuffer == nil {
		return statusNullPointer
	}

	raw := C.GoString(requestJSON)
	if !utf8.ValidString(raw) {
		return statusInvalidUTF8
	}

	if br == nil {
		return statusNotInitialized
	}

	out, err := br.Dispatch([]byte(raw))
	if err != nil {
		return classify(err)
	}

	if len(out) > int(responseBuffer.capacity) {
		return statusBufferTooSmall
	}
	if len(out) > 0 {
		C.memcpy(unsafe.Pointer(responseBuffer.data), unsafe.Pointer(&out[0]), C.size_t(len(out)))
	}
	responseBuffer.len = C.size_t(len(out))
	return statusOK
}

func classify(err error) C.int32_t {
	switch {
	case errors.Is(err, bridge.ErrNotInitialized), errors.Is(err, bridge.ErrBridgeClosed):
		return statusNotInitialized
	case errors.Is(err, model.ErrMalformedRequest):
		return statusParseFailure
	case errors.Is(err, bridge.ErrSerializeResponse):
		return statusSerializeFailed
	case errors.Is(err, context.DeadlineExceeded):
		return statusTimeout
	}

	var te *transport.Error
	if errors.As(err, &te) && te.Kind == transport.KindTimeout {
		return statusTimeout
	}
	return statusRequestFailed
}

//export allocate_buffer
func allocate_buffer(size C.size_t) *C.shared_buffer_t {
	buf := (*C.shared_buffer_t)(C.malloc(C.size_t(unsafe.Sizeof(C.shared_buffer_t{}))))
	if buf == nil {
		return nil
	}
	buf.data = (*C.uint8_t)(C.malloc(size))
	buf.len = 0
	buf.capacity = size
	return buf
}

//export free_buffer
func free_buffer(buf *C.shared_buffer_t) {
	if buf == nil {
		return
	}
	if buf.data != nil {
		C.free(unsafe.Pointer(buf.data))
	}
	C.free(unsafe.Pointer(buf))
}

//export free_string
func free_string(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

//export http_stats
func http_stats() *C.char {
	if br == nil {
		return C.CString("{}")
	}
	return C.CString(string(br.StatsJSON()))
}

func main() {}
