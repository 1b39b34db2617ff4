//go:build espeak

package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdint.h>
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

extern int goSynthCallback(short *wav, int numsamples, espeak_EVENT *events);

static void loqa_set_synth_callback(void)
{
	espeak_SetSynthCallback(goSynthCallback);
}

static espeak_ERROR loqa_synth(const char *text, size_t size, uintptr_t user_data)
{
	return espeak_Synth(text, size, 0, POS_CHARACTER, 0, espeakCHARS_UTF8, NULL, (void *)user_data);
}

static const espeak_VOICE *loqa_voice_at(const espeak_VOICE **list, int i)
{
	return list[i];
}
*/
import "C"

import "unsafe"

type nativeAPI struct{}

func nativeEngine() (engine, error) {
	return nativeAPI{}, nil
}

func (nativeAPI) Initialize(dataDir string) int {
	cdir := C.CString(dataDir)
	defer C.free(unsafe.Pointer(cdir))

	rate := C.espeak_Initialize(C.AUDIO_OUTPUT_SYNCHRONOUS, 0, cdir, 0)
	if rate > 0 {
		C.loqa_set_synth_callback()
	}
	return int(rate)
}

func (nativeAPI) Terminate() Status {
	return Status(C.espeak_Terminate())
}

func (nativeAPI) Synth(text string, userData uintptr) Status {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	size := C.size_t(len(text) + 1)
	return Status(C.loqa_synth(ctext, size, C.uintptr_t(userData)))
}

func (nativeAPI) ListVoices() ([]voiceEntry, bool) {
	list := C.espeak_ListVoices(nil)
	if list == nil {
		return nil, false
	}
	var voices []voiceEntry
	for i := 0; ; i++ {
		v := C.loqa_voice_at(list, C.int(i))
		if v == nil {
			break
		}
		voices = append(voices, nativeVoice(v))
	}
	return voices, true
}

func (nativeAPI) SetVoiceByName(name string) Status {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return Status(C.espeak_SetVoiceByName(cname))
}

func (nativeAPI) CurrentVoice() (voiceEntry, bool) {
	v := C.espeak_GetCurrentVoice()
	if v == nil {
		return voiceEntry{}, false
	}
	return nativeVoice(v), true
}

func (nativeAPI) SetParameter(p Parameter, value int) Status {
	return Status(C.espeak_SetParameter(C.espeak_PARAMETER(p), C.int(value), 0))
}

func (nativeAPI) Parameter(p Parameter, current bool) int {
	var which C.int
	if current {
		which = 1
	}
	return int(C.espeak_GetParameter(C.espeak_PARAMETER(p), which))
}

func nativeVoice(v *C.espeak_VOICE) voiceEntry {
	if v.name == nil {
		return voiceEntry{}
	}
	return voiceEntry{name: C.GoString(v.name), named: true}
}
