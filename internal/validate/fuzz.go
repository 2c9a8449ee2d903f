package validate

// Fuzz follows wag's internal/fuzz convention (Fuzz(data []byte) int)
// without a build-time fuzzing driver dependency — wag's own
// internal/fuzz/fuzz.go imports gapstone and wag only, never go-fuzz
// itself, so this repo keeps the same entrypoint shape with none of that
// dependency either. data is treated as one Code-section entry.
func Fuzz(data []byte) int {
	if err := FunctionBody(data); err != nil {
		return 0
	}
	return 1
}
