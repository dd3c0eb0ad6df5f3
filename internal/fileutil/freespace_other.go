//go:build !unix

package fileutil

func freeSpace(string) (uint64, error) {
	return 0, nil
}
