// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - wave: WAV decoding to model-rate mono float32 samples
package audio
