// Package audio reports basic properties of sound files: duration, sample rate, channel
// count, frame count and, when the samples can be decoded, peak amplitude.
//
// WAV (including phase vocoder analysis files, which use a WAV container) and AIFF headers
// are read natively. Other formats can be handled by an optional SoX prober.
package audio
