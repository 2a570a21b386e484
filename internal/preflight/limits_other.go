//go:build !unix

package preflight

func fileDescriptorLimit() (int, bool) {
	return 0, false
}

func accessWritable(string) error {
	return nil
}
