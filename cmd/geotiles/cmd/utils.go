package cmd

import (
	"bufio"
	"fmt"
	"os"
)

// fileExists returns nil if path exists, or an error describing why it
// doesn't (or couldn't be stat'ed).
func fileExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no such file %q", path)
		}
		return err
	}
	return nil
}

// confirmIfExists returns true immediately if path doesn't exist; otherwise
// it asks the user for confirmation before overwriting it.
func confirmIfExists(path, msg string) (ok bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return askForConfirmation(msg), nil
}

// askForConfirmation prints msg and reads a y/n answer from stdin, typing
// ENTER defaults to no.
func askForConfirmation(msg string) bool {
	fmt.Println(msg)
	reader := bufio.NewReader(os.Stdin)
	const defaultInput = byte('N')

	for {
		input, _ := reader.ReadString('\n')
		if len(input) == 0 {
			return false
		}
		c := input[0]
		if c == '\n' {
			c = defaultInput
		}
		switch c {
		case 'Y', 'y':
			return true
		case 'N', 'n':
			return false
		}
	}
}

// removeFile deletes path, used by `config` right after the user confirms
// an overwrite (config.Save itself always refuses to clobber an existing
// file).
func removeFile(path string) error {
	return os.Remove(path)
}

// die prints a one-line message naming the phase and exits non-zero, per
// the CLI's exit-code contract: 0 success, 1 fatal.
func die(phase string, err error) {
	fmt.Fprintf(os.Stderr, "geotiles: %s: %v\n", phase, err)
	os.Exit(1)
}
