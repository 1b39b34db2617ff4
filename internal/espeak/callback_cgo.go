//go:build espeak

package espeak

/*
#include <espeak-ng/speak_lib.h>
*/
import "C"

import "unsafe"

//export goSynthCallback
func goSynthCallback(wav *C.short, numSamples C.int, events *C.espeak_EVENT) C.int {
	var userData uintptr
	if events != nil {
		userData = uintptr(events.user_data)
	}
	return C.int(deliverFragment(unsafe.Pointer(wav), int(numSamples), userData))
}
