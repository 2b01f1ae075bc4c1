//go:build gphoto2

package native

/*
#include <stdint.h>
*/
import "C"

import "runtime/cgo"

// gpcamContextMessage receives every context callback installed by
// set_context_funcs. handle is the cgo.Handle of the owning libContext.
//
//export gpcamContextMessage
func gpcamContextMessage(kind C.int, msg *C.char, handle C.uintptr_t) {
	c, ok := cgo.Handle(handle).Value().(*libContext)
	if !ok || c.logFn == nil {
		return
	}
	c.logFn(MessageKind(kind), C.GoString(msg))
}
