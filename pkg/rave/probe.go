package rave

// ProbeDimensions reports the latent width of the model at path by
// encoding one second of silence and inspecting the result. The model
// is loaded, probed and closed; nothing is written anywhere.
func ProbeDimensions(path string) (int, error) {
	m, err := Load(path)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	silence := make([]float32, m.SampleRate())
	z, err := m.Encode(silence)
	if err != nil {
		return 0, err
	}
	return z.Dims, nil
}
