// Package analysis extracts frequency content from recorded runs.
//
// A stored run is a table of evenly spaced frames, one column per node
// coordinate. [Column] pulls one coordinate out, [SampleRate] recovers the
// recording rate from the frame times and [PowerSpectrum] turns the samples
// into a one-sided amplitude spectrum:
//
//	rate, _ := analysis.SampleRate(times)
//	spectrum, _ := analysis.PowerSpectrum(analysis.Column(states, 1), rate)
//	freq, _ := spectrum.Dominant()
//
// A soft body swinging on its springs shows up as a clear peak; a body at
// rest has nothing but the zero bin, which Dominant ignores.
package analysis
