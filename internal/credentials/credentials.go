// Package credentials locates the Google service account key used by the
// Vision and Document AI clients. The key file is expected to sit next to the
// running binary, which keeps deployments self-contained: the resolved path
// does not depend on the process working directory.
package credentials

import (
	"os"
	"path/filepath"

	"google.golang.org/api/option"
)

// KeyFileName is the fixed name of the service account key file.
const KeyFileName = "vision-api.json"

// Path returns the absolute path of the key file next to the running binary.
// The file is not checked for existence; a missing key surfaces later, when a
// client built from it makes its first call.
func Path() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return PathIn(filepath.Dir(exe)), nil
}

// PathIn returns the key file path inside the given directory.
func PathIn(dir string) string {
	return filepath.Join(dir, KeyFileName)
}

// ClientOptions returns the client options that inject the resolved key file
// into a Google API client. The path is passed explicitly; the process
// environment is never touched.
func ClientOptions() ([]option.ClientOption, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentialsFile(path)}, nil
}
