package jsonfile

import "os"

// Medium is the durable storage a Provider mirrors its database to. It only
// ever reads or writes a whole file.
type Medium interface {
	ReadFile(path string) (string, error)
	WriteFile(path, text string) error
}

// OSMedium is a Medium over the local filesystem.
type OSMedium struct{}

func (OSMedium) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (OSMedium) WriteFile(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}
