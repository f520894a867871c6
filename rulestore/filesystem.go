package rulestore

import "os"

// FileSystem is the interface the rule store and deployment trigger use to
// touch the files they own.
type FileSystem interface {
	ReadFile(filename string) (string, error)
	AppendFile(filename string, data string) error
}

// FileSystemImpl is the OS-backed implementation of FileSystem.
type FileSystemImpl struct {
}

// ReadFile reads a file and returns its content as a string.
func (fs *FileSystemImpl) ReadFile(filename string) (string, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// AppendFile appends data to a file, creating it if it does not exist.
// Existing content is never rewritten.
func (fs *FileSystemImpl) AppendFile(filename string, data string) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err = f.WriteString(data); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
